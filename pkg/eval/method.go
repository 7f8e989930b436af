package eval

import (
	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/parse"
)

// method dispatches target.name(args) over the receiver's type.
func (fm *Frame) method(target Value, name string, args []parse.Arg) (Value, error) {
	inv, err := fm.evalArgs(name, args)
	if err != nil {
		return nil, err
	}
	switch target := target.(type) {
	case Str:
		return fm.strMethod(target, name, inv)
	case Num:
		return fm.numMethod(target, name, inv)
	case List:
		return fm.listMethod(target, name, inv)
	case NoteVal:
		return fm.noteMethod(target, name, inv)
	case Undefined:
		return nil, errs.New(errs.BadValue, "undefined has no method %s; use orElse", name)
	default:
		return nil, errs.New(errs.UnknownMethod, "%s on %s", name, target.Kind())
	}
}

func (fm *Frame) numMethod(n Num, name string, inv *invocation) (Value, error) {
	switch name {
	case "gt", "lt", "ge", "le", "eq", "ne":
		if err := inv.countExact(1); err != nil {
			return nil, err
		}
		other, err := inv.num(0)
		if err != nil {
			return nil, err
		}
		var cmp int
		switch {
		case float64(n) < other:
			cmp = -1
		case float64(n) > other:
			cmp = 1
		}
		return cmpResult(cmp, name)
	default:
		return nil, errs.New(errs.UnknownMethod, "%s on number", name)
	}
}

// listMethod reuses the list builtins with the receiver as first argument,
// so list.count() and count(list) behave identically.
func (fm *Frame) listMethod(l List, name string, inv *invocation) (Value, error) {
	switch name {
	case "count", "first", "last", "join", "map", "filter":
		inv.pos = append([]Value{l}, inv.pos...)
		return builtins[name](fm, inv)
	default:
		return nil, errs.New(errs.UnknownMethod, "%s on list", name)
	}
}

func (fm *Frame) noteMethod(nv NoteVal, name string, inv *invocation) (Value, error) {
	switch name {
	case "ancestor":
		if err := inv.countExact(1); err != nil {
			return nil, err
		}
		steps, err := inv.num(0)
		if err != nil {
			return nil, err
		}
		if steps < 1 {
			return nil, errs.New(errs.BadValue, "ancestor steps must be at least 1, not %v", steps)
		}
		return fm.navigate(nv.Note, deps.NavAncestor, int(steps))
	default:
		return nil, errs.New(errs.UnknownMethod, "%s on note", name)
	}
}
