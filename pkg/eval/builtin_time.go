package eval

import (
	"time"

	"github.com/quillnotes/quill/pkg/eval/errs"
)

func init() {
	addBuiltinFns(map[string]builtinFn{
		"time":     timeFn,
		"date":     dateFn,
		"datetime": datetimeFn,
	})
}

// Temporal values are strings in one of these layouts. The layout doubles as
// the temporal kind: what parses as TimeLayout is a daily time of day, and so
// on.
const (
	TimeLayout     = "15:04"
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

// timeFn reads the current time of day. Bare reads are rejected by the
// temporal validator; only wrapped directives reach this at run time.
func timeFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(0); err != nil {
		return nil, err
	}
	return Str(fm.now().Format(TimeLayout)), nil
}

func dateFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(0); err != nil {
		return nil, err
	}
	return Str(fm.now().Format(DateLayout)), nil
}

func datetimeFn(fm *Frame, inv *invocation) (Value, error) {
	if err := inv.countExact(0); err != nil {
		return nil, err
	}
	return Str(fm.now().Format(DateTimeLayout)), nil
}

// ParseTemporal parses a string as a temporal value, trying the date-time,
// date and time-of-day layouts in order. The returned layout identifies which
// one matched.
func ParseTemporal(s string) (time.Time, string, bool) {
	for _, layout := range []string{DateTimeLayout, DateLayout, TimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

// OffsetMinutes computes the total offset in minutes from the minutes, hours
// and days arguments of a plus or minus call.
func (inv *invocation) offsetMinutes() (int, error) {
	if err := inv.countExact(0); err != nil {
		return 0, err
	}
	minutes, err := inv.namedNum("minutes")
	if err != nil {
		return 0, err
	}
	hours, err := inv.namedNum("hours")
	if err != nil {
		return 0, err
	}
	days, err := inv.namedNum("days")
	if err != nil {
		return 0, err
	}
	return int(minutes) + int(hours)*60 + int(days)*24*60, nil
}

// strMethod dispatches methods on string values. Temporal arithmetic and
// comparisons work on any string in a temporal layout.
func (fm *Frame) strMethod(s Str, name string, inv *invocation) (Value, error) {
	switch name {
	case "plus", "minus":
		t, layout, ok := ParseTemporal(string(s))
		if !ok {
			return nil, errs.New(errs.BadValue, "%s: %q is not a time, date or date-time", name, string(s))
		}
		offset, err := inv.offsetMinutes()
		if err != nil {
			return nil, err
		}
		if name == "minus" {
			offset = -offset
		}
		return Str(t.Add(time.Duration(offset) * time.Minute).Format(layout)), nil
	case "gt", "lt", "ge", "le", "eq", "ne":
		if err := inv.countExact(1); err != nil {
			return nil, err
		}
		other, err := inv.str(0)
		if err != nil {
			return nil, err
		}
		return compareStrings(string(s), other, name)
	case "concat":
		if err := inv.countExact(1); err != nil {
			return nil, err
		}
		other, err := inv.str(0)
		if err != nil {
			return nil, err
		}
		return Str(string(s) + other), nil
	default:
		return nil, errs.New(errs.UnknownMethod, "%s on string", name)
	}
}

// compareStrings compares temporally when both sides parse in the same
// temporal layout, and lexicographically otherwise.
func compareStrings(a, b, op string) (Value, error) {
	ta, la, aok := ParseTemporal(a)
	tb, lb, bok := ParseTemporal(b)
	var cmp int
	if aok && bok && la == lb {
		switch {
		case ta.Before(tb):
			cmp = -1
		case ta.After(tb):
			cmp = 1
		}
	} else {
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}
	return cmpResult(cmp, op)
}

func cmpResult(cmp int, op string) (Value, error) {
	switch op {
	case "gt":
		return Bool(cmp > 0), nil
	case "lt":
		return Bool(cmp < 0), nil
	case "ge":
		return Bool(cmp >= 0), nil
	case "le":
		return Bool(cmp <= 0), nil
	case "eq":
		return Bool(cmp == 0), nil
	case "ne":
		return Bool(cmp != 0), nil
	default:
		return nil, errs.New(errs.UnknownMethod, "%s", op)
	}
}
