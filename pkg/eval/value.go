package eval

import (
	"strconv"
	"strings"

	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/parse"

	"github.com/quillnotes/quill/pkg/deps"
)

// Value is a runtime value of the directive language. The set of
// implementations is closed.
type Value interface {
	// Kind returns a short name of the value's type, used in error messages.
	Kind() string
}

// Num is a number.
type Num float64

func (Num) Kind() string { return "number" }

// Str is a string. Temporal values (times, dates, date-times) are strings in
// one of the canonical layouts.
type Str string

func (Str) Kind() string { return "string" }

// Bool is a boolean.
type Bool bool

func (Bool) Kind() string { return "boolean" }

// List is a list of values.
type List []Value

func (List) Kind() string { return "list" }

// Undefined is the sentinel returned by property reads that resolve to
// nothing. It may be used in a boolean predicate position (where it counts as
// false) or passed through orElse; any other use is an evaluation error.
type Undefined struct{}

func (Undefined) Kind() string { return "undefined" }

// NoteVal is a reference to a note. via is set when the note was reached by
// a hierarchy navigation, so that field reads can record per-field hierarchy
// dependencies.
type NoteVal struct {
	Note *note.Note
	via  *deps.Hierarchy
}

func (NoteVal) Kind() string { return "note" }

// ViewVal is the rendered view of one or more notes. The executor folds IDs
// into both halves of the content dependency set, since a view displays full
// content.
type ViewVal struct {
	IDs      []note.ID
	Rendered string
}

func (ViewVal) Kind() string { return "view" }

// LambdaVal is a function value with its captured scope.
type LambdaVal struct {
	Params []string
	Body   parse.Node
	env    *scope
}

func (LambdaVal) Kind() string { return "lambda" }

// PatternVal is a search pattern.
type PatternVal struct {
	Text string
}

func (PatternVal) Kind() string { return "pattern" }

// Match reports whether the pattern matches a note, by substring match
// against its name or path.
func (p PatternVal) Match(n *note.Note) bool {
	return strings.Contains(n.Name, p.Text) || strings.Contains(n.Path, p.Text)
}

// ButtonVal is a rendered button; its action runs only when the user taps it.
type ButtonVal struct {
	Label  string
	Action parse.Node
}

func (ButtonVal) Kind() string { return "button" }

// ScheduleVal is a rendered schedule registration; its action runs when the
// external scheduler fires.
type ScheduleVal struct {
	Spec   string
	Action parse.Node
}

func (ScheduleVal) Kind() string { return "schedule" }

// Repr returns the canonical display string of a value. Cache-change
// detection compares Repr output, so it must be deterministic.
func Repr(v Value) string {
	switch v := v.(type) {
	case Num:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Str:
		return string(v)
	case Bool:
		return strconv.FormatBool(bool(v))
	case List:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = Repr(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case Undefined:
		return ""
	case NoteVal:
		return v.Note.Name
	case ViewVal:
		return v.Rendered
	case LambdaVal:
		return "{lambda}"
	case PatternVal:
		return "/" + v.Text + "/"
	case ButtonVal:
		return "(" + v.Label + ")"
	case ScheduleVal:
		return "scheduled: " + v.Spec
	case nil:
		return ""
	default:
		panic("eval: unhandled value in Repr")
	}
}

// Truth interprets a value in a boolean predicate position. Undefined counts
// as false; the bool return reports whether the value is usable as a
// predicate at all.
func Truth(v Value) (bool, bool) {
	switch v := v.(type) {
	case Bool:
		return bool(v), true
	case Undefined:
		return false, true
	default:
		return false, false
	}
}
