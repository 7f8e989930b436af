// Command quill evaluates directives embedded in a directory of notes.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/quillnotes/quill/pkg/cache"
	"github.com/quillnotes/quill/pkg/diag"
	"github.com/quillnotes/quill/pkg/engine"
	"github.com/quillnotes/quill/pkg/logutil"
	"github.com/quillnotes/quill/pkg/note"
)

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		diag.DisableColor()
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(2)
	}
}

// app carries the wired-up state shared by subcommands.
type app struct {
	cfg    *config
	store  *note.MapStore
	cache  *cache.Manager
	engine *engine.Engine
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool
	a := &app{}
	root := &cobra.Command{
		Use:           "quill",
		Short:         "evaluate directives embedded in notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			store, err := loadNotes(cfg.Notes.Dir)
			if err != nil {
				return err
			}
			a.store = store
			c, err := cache.Open(cache.Options{
				Capacity: cfg.Cache.Capacity,
				Path:     cfg.Cache.Path,
			})
			if err != nil {
				return err
			}
			a.cache = c
			a.engine = engine.New(store, c)
			if verbose {
				a.engine.SetLogger(logutil.Named(cmd.ErrOrStderr(), "engine"))
				c.SetLogger(logutil.Named(cmd.ErrOrStderr(), "cache"))
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.cache != nil {
				return a.cache.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: quill.yaml in the notes directory, if present)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine and cache diagnostics")
	root.AddCommand(newEvalCmd(a), newRenderCmd(a), newCheckCmd(a), newTriggersCmd(a))
	return root
}

// showErr prints an error to stderr, using the source-context rendering when
// available.
func showErr(cmd *cobra.Command, err error) {
	if shower, ok := err.(diag.Shower); ok {
		fmt.Fprintln(cmd.ErrOrStderr(), shower.Show(""))
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
}
