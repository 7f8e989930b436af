// Package validate implements the static mutation/temporal check of
// directives.
//
// Two rules, enforced before a directive ever runs: a mutation operation must
// sit inside an action wrapper (button, schedule) or a once wrapper, and a
// bare time-producing primitive must sit inside a time wrapper (once,
// refresh). The action argument of an action wrapper implicitly counts as a
// time wrapper too, so a scheduled action may read the clock when it fires.
package validate

import (
	"fmt"

	"github.com/quillnotes/quill/pkg/diag"
	"github.com/quillnotes/quill/pkg/parse"
)

// Error is a validation error.
type Error = diag.Error[ErrorTag]

// ErrorTag parameterizes [diag.Error] to define [Error].
type ErrorTag struct{}

func (ErrorTag) ErrorTag() string { return "validation error" }

// mutationFns are the builtins that produce mutation operations.
var mutationFns = map[string]bool{
	"new":         true,
	"newIfAbsent": true,
	"append":      true,
}

// timeFns are the builtins that read the clock.
var timeFns = map[string]bool{
	"time":     true,
	"date":     true,
	"datetime": true,
}

// actionWrappers maps the action-wrapper builtins to the index of their
// action argument.
var actionWrappers = map[string]int{
	"button":   1,
	"schedule": 1,
}

// Check validates a parsed directive. The returned error contains one
// [Error] per violation; nil means the directive may execute.
func Check(name, src string, n parse.Node) error {
	v := &validator{srcName: name, src: src}
	v.check(n, ctx{})
	return diag.PackErrors(v.errors)
}

type ctx struct {
	inAction bool
	inTime   bool
	inOnce   bool
}

type validator struct {
	srcName string
	src     string
	errors  []*Error
}

func (v *validator) errorf(r diag.Ranger, format string, args ...any) {
	v.errors = append(v.errors, &Error{
		Message: fmt.Sprintf(format, args...),
		Context: *diag.NewContext(v.srcName, v.src, r),
	})
}

// check recurses with the wrapper context. The switch must stay exhaustive
// over all AST variants.
func (v *validator) check(n parse.Node, c ctx) {
	switch n := n.(type) {
	case *parse.Number, *parse.String, *parse.Pattern, *parse.CurrentNote:
	case *parse.Var:
		if timeFns[n.Name] && !c.inTime {
			v.errorf(n, "%s can only be read inside once[...], refresh[...] or an action", n.Name)
		}
	case *parse.PropertyAccess:
		v.check(n.Target, c)
	case *parse.Lambda:
		v.check(n.Body, c)
	case *parse.LambdaCall:
		v.check(n.Lambda, c)
		v.checkArgs(n.Args, c)
	case *parse.DeferOnce:
		v.check(n.Body, ctx{inAction: c.inAction, inTime: true, inOnce: true})
	case *parse.DeferReactive:
		v.check(n.Body, ctx{inAction: c.inAction, inTime: true, inOnce: c.inOnce})
	case *parse.Assign:
		v.check(n.Value, c)
	case *parse.Seq:
		for _, st := range n.Stmts {
			v.check(st, c)
		}
	case *parse.MethodCall:
		v.check(n.Target, c)
		v.checkArgs(n.Args, c)
	case *parse.Call:
		if mutationFns[n.Name] && !c.inAction && !c.inOnce {
			v.errorf(n, "%s can only be used inside an action or once[...]", n.Name)
		}
		if timeFns[n.Name] && !c.inTime {
			v.errorf(n, "%s can only be read inside once[...], refresh[...] or an action", n.Name)
		}
		if actionIdx, ok := actionWrappers[n.Name]; ok {
			for i, a := range n.Args {
				if i == actionIdx {
					v.check(a.Value, ctx{inAction: true, inTime: true, inOnce: c.inOnce})
				} else {
					v.check(a.Value, c)
				}
			}
			return
		}
		v.checkArgs(n.Args, c)
	default:
		panic("validate: unhandled node variant in check")
	}
}

func (v *validator) checkArgs(args []parse.Arg, c ctx) {
	for _, a := range args {
		v.check(a.Value, c)
	}
}
