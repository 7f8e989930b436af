// Package errs declares the execution-error taxonomy.
//
// Every error raised during directive evaluation falls into a fixed set of
// kinds. Kinds are either deterministic (re-running the same directive
// against the same data fails the same way; safe to cache) or
// non-deterministic (transient; never cached, retried on the next staleness
// check).
package errs

import "fmt"

// Kind classifies an execution error.
type Kind int

const (
	// BadType is a type mismatch.
	BadType Kind = iota
	// BadValue is a value that has the right type but is invalid.
	BadValue
	// ArityMismatch is a call with the wrong number of arguments.
	ArityMismatch
	// UnknownField is an access of a field the target does not have.
	UnknownField
	// UnknownMethod is a call of a method the target does not have.
	UnknownMethod
	// UnknownVariable is a reference to an unbound name.
	UnknownVariable
	// CircularView is a cycle of notes viewing each other.
	CircularView
	// DivideByZero is a division or modulo by zero.
	DivideByZero

	// NetworkFailure is a failure to reach a remote collaborator.
	NetworkFailure
	// Timeout is an operation that ran out of time.
	Timeout
	// Unavailable is a resource that is not available yet.
	Unavailable
	// PermissionDenied is a denied access.
	PermissionDenied
	// ExternalFailure is a failure inside an external service.
	ExternalFailure
)

func (k Kind) String() string {
	switch k {
	case BadType:
		return "bad type"
	case BadValue:
		return "bad value"
	case ArityMismatch:
		return "arity mismatch"
	case UnknownField:
		return "unknown field"
	case UnknownMethod:
		return "unknown method"
	case UnknownVariable:
		return "unknown variable"
	case CircularView:
		return "circular view"
	case DivideByZero:
		return "divide by zero"
	case NetworkFailure:
		return "network failure"
	case Timeout:
		return "timeout"
	case Unavailable:
		return "unavailable"
	case PermissionDenied:
		return "permission denied"
	case ExternalFailure:
		return "external failure"
	default:
		return "unknown"
	}
}

// Deterministic reports whether errors of this kind are deterministic and
// therefore safe to cache.
func (k Kind) Deterministic() bool {
	switch k {
	case NetworkFailure, Timeout, Unavailable, PermissionDenied, ExternalFailure:
		return false
	default:
		return true
	}
}

// Error is an execution error with its kind. All errors produced by the
// evaluator are of this type; errors from external collaborators are wrapped
// by [Classify].
type Error struct {
	K       Kind
	Message string
}

func (e *Error) Error() string {
	return e.K.String() + ": " + e.Message
}

// New returns an Error of the given kind.
func New(k Kind, format string, args ...any) *Error {
	return &Error{K: k, Message: fmt.Sprintf(format, args...)}
}

// TypeMismatch returns a BadType error in the standard form.
func TypeMismatch(what, want, actual string) *Error {
	return New(BadType, "%s must be %s, but is %s", what, want, actual)
}

// Arity returns an ArityMismatch error in the standard form. high < 0 means
// "or more".
func Arity(what string, low, high, actual int) *Error {
	switch {
	case high < 0:
		return New(ArityMismatch, "%s must be %d or more values, but is %d", what, low, actual)
	case low == high:
		return New(ArityMismatch, "%s must be %d values, but is %d", what, low, actual)
	default:
		return New(ArityMismatch, "%s must be %d to %d values, but is %d", what, low, high, actual)
	}
}
