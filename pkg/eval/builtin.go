package eval

import (
	"math"
	"strings"

	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/parse"
)

// builtinFn is a builtin taking evaluated arguments.
type builtinFn func(fm *Frame, inv *invocation) (Value, error)

// specialFormFn is a builtin that controls the evaluation of its own
// arguments (conditionals and action wrappers).
type specialFormFn func(fm *Frame, n *parse.Call) (Value, error)

var builtins = map[string]builtinFn{}

var specialForms = map[string]specialFormFn{}

func addBuiltinFns(fns map[string]builtinFn) {
	for name, fn := range fns {
		builtins[name] = fn
	}
}

func init() {
	// Populated here rather than in the literal: the forms call back into
	// Frame.eval, which reads this map.
	specialForms["if"] = ifForm
	specialForms["button"] = buttonForm
	specialForms["schedule"] = scheduleForm
	addBuiltinFns(map[string]builtinFn{
		"not":    not,
		"count":  countFn,
		"first":  firstFn,
		"last":   lastFn,
		"join":   joinFn,
		"map":    mapFn,
		"filter": filterFn,
		"add":    arith("add"),
		"sub":    arith("sub"),
		"mul":    arith("mul"),
		"div":    arith("div"),
		"mod":    arith("mod"),
		"concat": concatFn,
		"orElse": orElse,
	})
}

// ifForm evaluates the condition and then only the selected branch. The else
// branch is optional; when absent and the condition is false, the result is
// undefined.
func ifForm(fm *Frame, n *parse.Call) (Value, error) {
	if len(n.Args) < 2 || len(n.Args) > 3 {
		return nil, errs.Arity("if arguments", 2, 3, len(n.Args))
	}
	cond, err := fm.eval(n.Args[0].Value)
	if err != nil {
		return nil, err
	}
	truth, ok := Truth(cond)
	if !ok {
		return nil, errs.TypeMismatch("if condition", "boolean", cond.Kind())
	}
	if truth {
		return fm.eval(n.Args[1].Value)
	}
	if len(n.Args) == 3 {
		return fm.eval(n.Args[2].Value)
	}
	return Undefined{}, nil
}

// buttonForm renders a button without running its action; the action is
// evaluated only when the user triggers it, via [Evaler.RunAction].
func buttonForm(fm *Frame, n *parse.Call) (Value, error) {
	if len(n.Args) != 2 {
		return nil, errs.Arity("button arguments", 2, 2, len(n.Args))
	}
	label, err := fm.eval(n.Args[0].Value)
	if err != nil {
		return nil, err
	}
	ls, ok := label.(Str)
	if !ok {
		return nil, errs.TypeMismatch("button label", "string", label.Kind())
	}
	return ButtonVal{Label: string(ls), Action: n.Args[1].Value}, nil
}

// scheduleForm registers an action to run on a schedule; like a button, the
// action does not run at render time.
func scheduleForm(fm *Frame, n *parse.Call) (Value, error) {
	if len(n.Args) != 2 {
		return nil, errs.Arity("schedule arguments", 2, 2, len(n.Args))
	}
	spec := n.Args[0].Value.SourceText()
	return ScheduleVal{Spec: spec, Action: n.Args[1].Value}, nil
}

// RunAction evaluates the action of a button or schedule value, collecting
// its mutations into the environment's sink.
func (ev *Evaler) RunAction(action parse.Node) (Value, error) {
	fm := &Frame{Evaler: ev, scope: newScope(nil)}
	v, err := fm.eval(action)
	if err != nil {
		return nil, err
	}
	if lv, ok := v.(LambdaVal); ok && len(lv.Params) == 0 {
		return fm.invokeLambda(lv, nil, nil)
	}
	return v, nil
}

func not(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	truth, ok := Truth(inv.pos[0])
	if !ok {
		return nil, errs.TypeMismatch("not argument", "boolean", inv.pos[0].Kind())
	}
	return Bool(!truth), nil
}

func countFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	switch v := inv.pos[0].(type) {
	case List:
		return Num(len(v)), nil
	case Str:
		return Num(len(v)), nil
	default:
		return nil, errs.TypeMismatch("count argument", "list or string", v.Kind())
	}
}

func firstFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	l, err := inv.list(0)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return Undefined{}, nil
	}
	return l[0], nil
}

func lastFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	l, err := inv.list(0)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return Undefined{}, nil
	}
	return l[len(l)-1], nil
}

func joinFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countBetween(1, 2); err != nil {
		return nil, err
	}
	l, err := inv.list(0)
	if err != nil {
		return nil, err
	}
	sep := ", "
	if len(inv.pos) == 2 {
		s, err := inv.str(1)
		if err != nil {
			return nil, err
		}
		sep = s
	}
	parts := make([]string, len(l))
	for i, item := range l {
		parts[i] = Repr(item)
	}
	return Str(strings.Join(parts, sep)), nil
}

func mapFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(2); err != nil {
		return nil, err
	}
	l, err := inv.list(0)
	if err != nil {
		return nil, err
	}
	f, err := inv.lambda(1)
	if err != nil {
		return nil, err
	}
	out := make(List, 0, len(l))
	for _, item := range l {
		v, err := fm.invokeLambda(f, []Value{item}, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func filterFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(2); err != nil {
		return nil, err
	}
	l, err := inv.list(0)
	if err != nil {
		return nil, err
	}
	f, err := inv.lambda(1)
	if err != nil {
		return nil, err
	}
	var out List
	for _, item := range l {
		v, err := fm.invokeLambda(f, []Value{item}, nil)
		if err != nil {
			return nil, err
		}
		truth, ok := Truth(v)
		if !ok {
			return nil, errs.TypeMismatch("filter predicate result", "boolean", v.Kind())
		}
		if truth {
			out = append(out, item)
		}
	}
	if out == nil {
		out = List{}
	}
	return out, nil
}

func arith(op string) builtinFn {
	return func(fm *Frame, inv *invocation) (Value, error) {
		if err := inv.countExact(2); err != nil {
			return nil, err
		}
		a, err := inv.num(0)
		if err != nil {
			return nil, err
		}
		b, err := inv.num(1)
		if err != nil {
			return nil, err
		}
		switch op {
		case "add":
			return Num(a + b), nil
		case "sub":
			return Num(a - b), nil
		case "mul":
			return Num(a * b), nil
		case "div":
			if b == 0 {
				return nil, errs.New(errs.DivideByZero, "division by zero")
			}
			return Num(a / b), nil
		case "mod":
			if b == 0 {
				return nil, errs.New(errs.DivideByZero, "modulo by zero")
			}
			return Num(math.Mod(a, b)), nil
		default:
			panic("eval: unknown arithmetic op " + op)
		}
	}
}

func concatFn(fm *Frame, inv *invocation) (Value, error) {
	var sb strings.Builder
	for _, v := range inv.pos {
		sb.WriteString(Repr(v))
	}
	return Str(sb.String()), nil
}

// orElse is the null-coalescing primitive: undefined maps to the
// type-appropriate empty value and everything else passes through unchanged.
// The optional "as" argument selects the empty value's type; it defaults to
// the empty string.
func orElse(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(1); err != nil {
		return nil, err
	}
	if _, isUndef := inv.pos[0].(Undefined); !isUndef {
		return inv.pos[0], nil
	}
	as, given, err := inv.namedStr("as")
	if err != nil {
		return nil, err
	}
	if !given {
		return Str(""), nil
	}
	switch as {
	case "string":
		return Str(""), nil
	case "list":
		return List{}, nil
	case "number":
		return Num(0), nil
	default:
		return nil, errs.New(errs.BadValue, "orElse: as must be string, list or number, not %q", as)
	}
}
