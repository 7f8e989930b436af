package trigger

import (
	"errors"
	"time"

	"github.com/quillnotes/quill/pkg/parse"
)

// ErrNoComparisons is returned when a reactive body contains no time
// comparison the analyzer can backtrace. Such a directive has no computable
// wake instants; the author should use once[...] instead.
var ErrNoComparisons = errors.New(
	"refresh[...] needs a comparison against the current time, date or datetime; use once[...] for values that never change")

// VerifyFunc evaluates the full reactive body with the environment's clock
// mocked to the given instant and returns the displayed result.
type VerifyFunc func(at time.Time) (string, error)

// Analyze statically locates time comparisons in a reactive body, inverts
// any additive offsets applied to the time value, and empirically verifies
// each candidate instant by evaluating the body just before, at and just
// after it. ref anchors daily candidates to a concrete date for
// verification.
func Analyze(body parse.Node, ref time.Time, verify VerifyFunc) ([]Trigger, error) {
	a := &analyzer{bindings: map[string]string{}}
	a.collectBindings(body)
	a.scan(body)
	if !a.comparisonsFound {
		return nil, ErrNoComparisons
	}
	var kept []Trigger
	for _, c := range a.candidates {
		if verify == nil || verified(c, ref, verify) {
			kept = appendTrigger(kept, c)
		}
	}
	return kept, nil
}

type analyzer struct {
	bindings         map[string]string
	comparisonsFound bool
	candidates       []Trigger
}

var comparisonMethods = map[string]bool{
	"gt": true, "lt": true, "ge": true, "le": true, "eq": true, "ne": true,
}

var temporalBases = map[string]bool{
	"time": true, "date": true, "datetime": true,
}

// collectBindings records simple assignments of string literals so that a
// comparison against a local variable can be resolved to its constant.
func (a *analyzer) collectBindings(n parse.Node) {
	switch n := n.(type) {
	case *parse.Assign:
		if s, ok := n.Value.(*parse.String); ok {
			a.bindings[n.Name] = s.Value
		}
	case *parse.Seq:
		for _, st := range n.Stmts {
			a.collectBindings(st)
		}
	}
}

// scan walks the body looking for comparisons. Nested once/refresh
// sub-expressions manage their own triggering and are not recursed into.
func (a *analyzer) scan(n parse.Node) {
	switch n := n.(type) {
	case *parse.Number, *parse.String, *parse.Pattern, *parse.CurrentNote, *parse.Var:
	case *parse.PropertyAccess:
		a.scan(n.Target)
	case *parse.Lambda:
		a.scan(n.Body)
	case *parse.LambdaCall:
		a.scan(n.Lambda)
		a.scanArgs(n.Args)
	case *parse.DeferOnce, *parse.DeferReactive:
	case *parse.Assign:
		a.scan(n.Value)
	case *parse.Seq:
		for _, st := range n.Stmts {
			a.scan(st)
		}
	case *parse.MethodCall:
		if comparisonMethods[n.Name] && len(n.Args) == 1 {
			a.comparison(n.Target, n.Args[0].Value)
		}
		a.scan(n.Target)
		a.scanArgs(n.Args)
	case *parse.Call:
		a.scanArgs(n.Args)
	default:
		panic("trigger: unhandled node variant in scan")
	}
}

func (a *analyzer) scanArgs(args []parse.Arg) {
	for _, arg := range args {
		a.scan(arg.Value)
	}
}

// comparison tries both orientations: temporal expression compared against a
// literal, and literal compared against a temporal expression.
func (a *analyzer) comparison(left, right parse.Node) {
	if base, offset, ok := backtrace(left); ok {
		if lit, ok := a.literal(right); ok {
			a.comparisonsFound = true
			a.candidate(base, offset, lit)
			return
		}
	}
	if base, offset, ok := backtrace(right); ok {
		if lit, ok := a.literal(left); ok {
			a.comparisonsFound = true
			a.candidate(base, offset, lit)
		}
	}
}

// literal resolves a node to a string constant: a string literal directly,
// or a variable bound to one.
func (a *analyzer) literal(n parse.Node) (string, bool) {
	switch n := n.(type) {
	case *parse.String:
		return n.Value, true
	case *parse.Var:
		v, ok := a.bindings[n.Name]
		return v, ok
	default:
		return "", false
	}
}

// backtrace follows a method chain down to a temporal primitive,
// accumulating the total additive offset in minutes.
func backtrace(n parse.Node) (base string, offsetMinutes int, ok bool) {
	switch n := n.(type) {
	case *parse.Var:
		return n.Name, 0, temporalBases[n.Name]
	case *parse.Call:
		if len(n.Args) == 0 {
			return n.Name, 0, temporalBases[n.Name]
		}
		return "", 0, false
	case *parse.MethodCall:
		if n.Name != "plus" && n.Name != "minus" {
			return "", 0, false
		}
		base, offset, ok := backtrace(n.Target)
		if !ok {
			return "", 0, false
		}
		delta, ok := offsetOf(n.Args)
		if !ok {
			return "", 0, false
		}
		if n.Name == "minus" {
			delta = -delta
		}
		return base, offset + delta, true
	default:
		return "", 0, false
	}
}

// offsetOf reads the minutes/hours/days named number literals of a plus or
// minus call.
func offsetOf(args []parse.Arg) (int, bool) {
	total := 0
	for _, a := range args {
		num, ok := a.Value.(*parse.Number)
		if !ok {
			return 0, false
		}
		switch a.Name {
		case "minutes":
			total += int(num.Value)
		case "hours":
			total += int(num.Value) * 60
		case "days":
			total += int(num.Value) * 24 * 60
		default:
			return 0, false
		}
	}
	return total, true
}

// candidate parses the literal in the base's layout and subtracts the
// accumulated offset: the comparison flips at literal-offset, not at the
// literal itself.
func (a *analyzer) candidate(base string, offsetMinutes int, lit string) {
	offset := time.Duration(offsetMinutes) * time.Minute
	switch base {
	case "time":
		t, err := time.Parse("15:04", lit)
		if err != nil {
			return
		}
		shifted := t.Add(-offset)
		a.candidates = append(a.candidates, Daily{Hour: shifted.Hour(), Minute: shifted.Minute()})
	case "date":
		d, err := time.Parse("2006-01-02", lit)
		if err != nil {
			return
		}
		if offsetMinutes == 0 {
			a.candidates = append(a.candidates, OnDate{Year: d.Year(), Month: d.Month(), Day: d.Day()})
		} else {
			a.candidates = append(a.candidates, AtInstant{When: d.Add(-offset)})
		}
	case "datetime":
		dt, err := time.Parse("2006-01-02 15:04", lit)
		if err != nil {
			return
		}
		a.candidates = append(a.candidates, AtInstant{When: dt.Add(-offset)})
	}
}

// verified evaluates the body around the candidate instant. The candidate is
// kept when the result differs between at least one adjacent pair, which
// covers both monotonic flips and point-in-time equality conditions. An
// evaluation failure keeps the candidate: a missed trigger is worse than a
// spurious one.
func verified(c Trigger, ref time.Time, verify VerifyFunc) bool {
	at := concreteInstant(c, ref)
	results := make([]string, 3)
	for i, t := range []time.Time{at.Add(-time.Minute), at, at.Add(time.Minute)} {
		r, err := verify(t)
		if err != nil {
			return true
		}
		results[i] = r
	}
	return results[0] != results[1] || results[1] != results[2]
}

func concreteInstant(c Trigger, ref time.Time) time.Time {
	switch c := c.(type) {
	case Daily:
		return time.Date(ref.Year(), ref.Month(), ref.Day(), c.Hour, c.Minute, 0, 0, ref.Location())
	case OnDate:
		return c.instant(ref.Location())
	case AtInstant:
		return c.When
	default:
		panic("trigger: unhandled trigger type")
	}
}

func appendTrigger(ts []Trigger, c Trigger) []Trigger {
	for _, have := range ts {
		if have == c {
			return ts
		}
	}
	return append(ts, c)
}
