package eval

import (
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/parse"
)

// invocation holds the evaluated arguments of one builtin call.
type invocation struct {
	what  string
	pos   []Value
	named map[string]Value
}

func (fm *Frame) evalArgs(what string, args []parse.Arg) (*invocation, error) {
	inv := &invocation{what: what}
	for _, a := range args {
		v, err := fm.eval(a.Value)
		if err != nil {
			return nil, err
		}
		if a.Name == "" {
			inv.pos = append(inv.pos, v)
		} else {
			if inv.named == nil {
				inv.named = make(map[string]Value)
			}
			if _, dup := inv.named[a.Name]; dup {
				return nil, errs.New(errs.BadValue, "%s: argument %s given twice", what, a.Name)
			}
			inv.named[a.Name] = v
		}
	}
	return inv, nil
}

func (inv *invocation) countExact(n int) error {
	if len(inv.pos) != n {
		return errs.Arity(inv.what+" arguments", n, n, len(inv.pos))
	}
	return nil
}

func (inv *invocation) countBetween(low, high int) error {
	if len(inv.pos) < low || len(inv.pos) > high {
		return errs.Arity(inv.what+" arguments", low, high, len(inv.pos))
	}
	return nil
}

func (inv *invocation) num(i int) (float64, error) {
	v, ok := inv.pos[i].(Num)
	if !ok {
		return 0, errs.TypeMismatch(inv.what+" argument", "number", inv.pos[i].Kind())
	}
	return float64(v), nil
}

func (inv *invocation) str(i int) (string, error) {
	v, ok := inv.pos[i].(Str)
	if !ok {
		return "", errs.TypeMismatch(inv.what+" argument", "string", inv.pos[i].Kind())
	}
	return string(v), nil
}

func (inv *invocation) list(i int) (List, error) {
	v, ok := inv.pos[i].(List)
	if !ok {
		return nil, errs.TypeMismatch(inv.what+" argument", "list", inv.pos[i].Kind())
	}
	return v, nil
}

func (inv *invocation) lambda(i int) (LambdaVal, error) {
	v, ok := inv.pos[i].(LambdaVal)
	if !ok {
		return LambdaVal{}, errs.TypeMismatch(inv.what+" argument", "lambda", inv.pos[i].Kind())
	}
	return v, nil
}

// namedNum returns a named numeric argument, or 0 when absent.
func (inv *invocation) namedNum(name string) (float64, error) {
	v, ok := inv.named[name]
	if !ok {
		return 0, nil
	}
	n, ok := v.(Num)
	if !ok {
		return 0, errs.TypeMismatch(inv.what+" argument "+name, "number", v.Kind())
	}
	return float64(n), nil
}

// namedStr returns a named string argument, or "" when absent.
func (inv *invocation) namedStr(name string) (string, bool, error) {
	v, ok := inv.named[name]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(Str)
	if !ok {
		return "", false, errs.TypeMismatch(inv.what+" argument "+name, "string", v.Kind())
	}
	return string(s), true, nil
}

// noNamed rejects any named arguments, for builtins that take none.
func (inv *invocation) noNamed() error {
	for name := range inv.named {
		return errs.New(errs.BadValue, "%s takes no argument named %s", inv.what, name)
	}
	return nil
}
