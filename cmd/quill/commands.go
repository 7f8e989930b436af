package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/parse"
	"github.com/quillnotes/quill/pkg/validate"
)

var errFailed = errors.New("failed")

// newEvalCmd evaluates a single directive given on the command line,
// optionally in the context of a note.
func newEvalCmd(a *app) *cobra.Command {
	var notePath string
	cmd := &cobra.Command{
		Use:   "eval DIRECTIVE",
		Short: "evaluate one directive and print its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var current *note.Note
			if notePath != "" {
				n, ok := a.store.ByPath(notePath)
				if !ok {
					return fmt.Errorf("no note at %s", notePath)
				}
				current = n
			}
			o := a.engine.Execute(args[0], current)
			if o.Err != nil {
				showErr(cmd, o.Err)
				return errFailed
			}
			fmt.Fprintln(cmd.OutOrStdout(), o.Rendered)
			if o.TriggerErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", o.TriggerErr)
			}
			if len(o.Ops) > 0 {
				created := a.store.Apply(o.Ops)
				for _, id := range created {
					if n, ok := a.store.Get(id); ok {
						fmt.Fprintf(cmd.ErrOrStderr(), "created note %s\n", n.Path)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&notePath, "note", "", "path of the note the directive runs in")
	return cmd
}

// newRenderCmd renders a note with all its directives replaced by their
// values.
func newRenderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "render PATH",
		Short: "render a note, evaluating its embedded directives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, ok := a.store.ByPath(args[0])
			if !ok {
				return fmt.Errorf("no note at %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.engine.Render(n))
			return nil
		},
	}
}

// newCheckCmd parses and validates every directive in every note without
// executing anything.
func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "check every directive in every note for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := 0
			for _, n := range sortedByPath(a.store) {
				for _, sp := range parse.Extract(n.Text()) {
					if err := checkDirective(n, sp); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", n.Path)
						showErr(cmd, err)
						bad++
					}
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d invalid directives", bad)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all directives ok")
			return nil
		},
	}
}

func checkDirective(n *note.Note, sp parse.Span) error {
	if sp.Unterminated {
		return fmt.Errorf("unterminated directive")
	}
	body, err := parse.Parse(n.Name, sp.Source)
	if err != nil {
		return err
	}
	return validate.Check(n.Name, sp.Source, body)
}

// newTriggersCmd executes every reactive directive and prints the wake
// instants it registers.
func newTriggersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "triggers",
		Short: "list the refresh triggers of all reactive directives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, n := range sortedByPath(a.store) {
				for _, sp := range parse.Extract(n.Text()) {
					if sp.Unterminated {
						continue
					}
					o := a.engine.Execute(sp.Source, n)
					if o.TriggerErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", n.Path, o.TriggerErr)
						continue
					}
					for _, t := range o.Triggers {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", n.Path, t)
					}
				}
			}
			now := time.Now()
			if next, reg, ok := a.engine.Registry().NextAfter(now); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "next wake: %s (note %s)\n",
					next.Format("2006-01-02 15:04"), reg.NoteID)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending triggers")
			}
			return nil
		},
	}
}
