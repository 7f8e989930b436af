// Package eval implements the tree-walking evaluator of the directive
// language and its execution environment.
package eval

import (
	"log"
	"time"

	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/logutil"
	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/parse"
)

// NestedFunc re-evaluates a directive found inside a viewed note. It returns
// the directive's value together with its full dependency set (the stored set
// when it was served from cache), which the caller folds into the enclosing
// directive's dependencies.
type NestedFunc func(src string, n *note.Note, viewStack []note.ID) (Value, *deps.Set, error)

// Evaler is the execution environment of one directive evaluation. It is
// single-use: the orchestrator creates one Evaler per execution.
type Evaler struct {
	// Store is the read-only view of all notes.
	Store note.Store
	// Current is the note the directive lives in; may be nil for directives
	// evaluated outside any note.
	Current *note.Note
	// Sink collects mutation operations; they are applied by the caller
	// after evaluation finishes.
	Sink *note.Sink
	// Once memoizes once[...] bodies across executions. Optional.
	Once *OnceStore
	// Deps records observed dependencies. Optional.
	Deps *deps.Collector
	// Clock overrides the wall clock when set. The trigger analyzer uses
	// this to evaluate a directive "at" hypothetical instants.
	Clock func() time.Time
	// Nested re-evaluates directives inside viewed notes. Optional; when nil
	// a view renders directive sources verbatim.
	Nested NestedFunc
	// ViewStack is the chain of notes currently being viewed, used to reject
	// circular views deterministically.
	ViewStack []note.ID

	Logger *log.Logger
}

// New returns an Evaler over the given store and current note with discard
// logging. Other fields are set directly by the caller.
func New(store note.Store, current *note.Note) *Evaler {
	return &Evaler{
		Store:   store,
		Current: current,
		Sink:    &note.Sink{},
		Logger:  logutil.Discard,
	}
}

func (ev *Evaler) now() time.Time {
	if ev.Clock != nil {
		return ev.Clock()
	}
	return time.Now()
}

// Eval evaluates a parsed directive and returns its value or an execution
// error. Errors are always of type [errs.Error] (or wrap one).
func (ev *Evaler) Eval(n parse.Node) (Value, error) {
	fm := &Frame{Evaler: ev, scope: newScope(nil)}
	return fm.eval(n)
}

// Frame is the evaluation state of one scope. Frames are forked, not
// mutated, when entering lambda bodies and statement blocks.
type Frame struct {
	*Evaler
	scope *scope
}

func (fm *Frame) fork() *Frame {
	return &Frame{Evaler: fm.Evaler, scope: newScope(fm.scope)}
}

// eval dispatches over every AST variant. The switch must stay exhaustive;
// the default branch panics so a missed variant cannot slip through silently.
func (fm *Frame) eval(n parse.Node) (Value, error) {
	switch n := n.(type) {
	case *parse.Number:
		return Num(n.Value), nil
	case *parse.String:
		return Str(n.Value), nil
	case *parse.Pattern:
		return PatternVal{Text: n.Value}, nil
	case *parse.CurrentNote:
		if fm.Current == nil {
			return nil, errs.New(errs.BadValue, "no current note")
		}
		return NoteVal{Note: fm.Current}, nil
	case *parse.Var:
		if v, ok := fm.scope.lookup(n.Name); ok {
			return v, nil
		}
		// A bare identifier may be a zero-argument builtin, like "time".
		if fn, ok := builtins[n.Name]; ok {
			return fn(fm, &invocation{what: n.Name})
		}
		return nil, errs.New(errs.UnknownVariable, "%s", n.Name)
	case *parse.PropertyAccess:
		target, err := fm.eval(n.Target)
		if err != nil {
			return nil, err
		}
		return fm.property(target, n.Field)
	case *parse.Lambda:
		return LambdaVal{Params: n.Params, Body: n.Body, env: fm.scope}, nil
	case *parse.LambdaCall:
		target, err := fm.eval(n.Lambda)
		if err != nil {
			return nil, err
		}
		lv, ok := target.(LambdaVal)
		if !ok {
			return nil, errs.TypeMismatch("called value", "lambda", target.Kind())
		}
		return fm.invokeLambdaArgs(lv, n.Args)
	case *parse.DeferOnce:
		return fm.evalOnce(n)
	case *parse.DeferReactive:
		// Re-triggering is the refresh analyzer's concern; evaluation just
		// computes the current value.
		return fm.eval(n.Body)
	case *parse.Assign:
		v, err := fm.eval(n.Value)
		if err != nil {
			return nil, err
		}
		fm.scope.bind(n.Name, v)
		return v, nil
	case *parse.Seq:
		block := fm.fork()
		var last Value = Undefined{}
		for _, st := range n.Stmts {
			v, err := block.eval(st)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	case *parse.MethodCall:
		target, err := fm.eval(n.Target)
		if err != nil {
			return nil, err
		}
		return fm.method(target, n.Name, n.Args)
	case *parse.Call:
		return fm.call(n)
	default:
		panic("eval: unhandled node variant in eval")
	}
}

func (fm *Frame) evalOnce(n *parse.DeferOnce) (Value, error) {
	var id note.ID
	if fm.Current != nil {
		id = fm.Current.ID
	}
	key := hash.Sum(n.Body.SourceText())
	if fm.Once != nil {
		if v, ok := fm.Once.Get(id, key); ok {
			return v, nil
		}
	}
	v, err := fm.eval(n.Body)
	if err != nil {
		return nil, err
	}
	if fm.Once != nil {
		fm.Once.Put(id, key, v)
	}
	return v, nil
}

func (fm *Frame) call(n *parse.Call) (Value, error) {
	// A name bound to a lambda shadows builtins.
	if v, ok := fm.scope.lookup(n.Name); ok {
		lv, ok := v.(LambdaVal)
		if !ok {
			return nil, errs.TypeMismatch("called value", "lambda", v.Kind())
		}
		return fm.invokeLambdaArgs(lv, n.Args)
	}
	if fn, ok := specialForms[n.Name]; ok {
		return fn(fm, n)
	}
	if fn, ok := builtins[n.Name]; ok {
		inv, err := fm.evalArgs(n.Name, n.Args)
		if err != nil {
			return nil, err
		}
		return fn(fm, inv)
	}
	return nil, errs.New(errs.UnknownVariable, "%s", n.Name)
}

// invokeLambdaArgs evaluates the arguments and invokes a lambda value.
// Positional arguments bind parameters in order; named arguments bind
// parameters by name.
func (fm *Frame) invokeLambdaArgs(lv LambdaVal, args []parse.Arg) (Value, error) {
	inv, err := fm.evalArgs("lambda", args)
	if err != nil {
		return nil, err
	}
	return fm.invokeLambda(lv, inv.pos, inv.named)
}

func (fm *Frame) invokeLambda(lv LambdaVal, pos []Value, named map[string]Value) (Value, error) {
	if len(pos) > len(lv.Params) {
		return nil, errs.Arity("lambda arguments", 0, len(lv.Params), len(pos))
	}
	body := &Frame{Evaler: fm.Evaler, scope: newScope(lv.env)}
	bound := make(map[string]bool, len(lv.Params))
	for i, v := range pos {
		body.scope.bind(lv.Params[i], v)
		bound[lv.Params[i]] = true
	}
	for name, v := range named {
		ok := false
		for _, p := range lv.Params {
			if p == name {
				ok = true
				break
			}
		}
		if !ok {
			return nil, errs.New(errs.BadValue, "lambda has no parameter %s", name)
		}
		if bound[name] {
			return nil, errs.New(errs.BadValue, "parameter %s bound twice", name)
		}
		body.scope.bind(name, v)
		bound[name] = true
	}
	for _, p := range lv.Params {
		if !bound[p] {
			body.scope.bind(p, Undefined{})
		}
	}
	return body.eval(lv.Body)
}
