package diag

import (
	"fmt"
	"strings"
)

// Error is an error with a source context, tagged with a type parameter to
// distinguish error stages (parse errors vs validation errors) at the type
// level.
type Error[T ErrorTag] struct {
	Message string
	Context Context
	// Partial is true if the error is at the end of the source and could be
	// resolved by more input.
	Partial bool
}

// ErrorTag is used to parameterize [Error] into different concrete types. The
// ErrorTag method is called on a zero value, and returns a string used as part
// of the error message.
type ErrorTag interface {
	ErrorTag() string
}

// Error returns a plain-text representation of the error.
func (e *Error[T]) Error() string {
	var tag T
	return fmt.Sprintf("%s: %s: %s", tag.ErrorTag(), e.Context.LineRange(), e.Message)
}

// Range returns the range of the error.
func (e *Error[T]) Range() Ranging {
	return e.Context.Range()
}

// Show renders the error with its source context.
func (e *Error[T]) Show(indent string) string {
	var tag T
	return fmt.Sprintf("%s: %s\n%s", tag.ErrorTag(), e.Message,
		indent+"  "+e.Context.Show(indent+"  "))
}

// PackErrors packs multiple [Error] values into a single error:
//
//   - If called with no errors, it returns nil.
//   - If called with one error, it returns that error itself.
//   - Otherwise the result contains all the errors and a combined message.
func PackErrors[T ErrorTag](errs []*Error[T]) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errorList[T](errs)
	}
}

// UnpackErrors returns the constituent [Error] values inside err if err was
// built from one or more of them, and nil otherwise.
func UnpackErrors[T ErrorTag](err error) []*Error[T] {
	switch err := err.(type) {
	case *Error[T]:
		return []*Error[T]{err}
	case errorList[T]:
		return err
	default:
		return nil
	}
}

type errorList[T ErrorTag] []*Error[T]

func (el errorList[T]) Error() string {
	var tag T
	var sb strings.Builder
	fmt.Fprintf(&sb, "multiple %ss: ", tag.ErrorTag())
	for i, e := range el {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (el errorList[T]) Show(indent string) string {
	var sb strings.Builder
	for i, e := range el {
		if i > 0 {
			sb.WriteString("\n" + indent)
		}
		sb.WriteString(e.Show(indent))
	}
	return sb.String()
}
