package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/quillnotes/quill/pkg/tt"
)

func TestKind_Deterministic(t *testing.T) {
	deterministic := []Kind{
		BadType, BadValue, ArityMismatch, UnknownField, UnknownMethod,
		UnknownVariable, CircularView, DivideByZero,
	}
	for _, k := range deterministic {
		if !k.Deterministic() {
			t.Errorf("%v should be deterministic", k)
		}
	}
	transient := []Kind{
		NetworkFailure, Timeout, Unavailable, PermissionDenied, ExternalFailure,
	}
	for _, k := range transient {
		if k.Deterministic() {
			t.Errorf("%v should not be deterministic", k)
		}
	}
}

func TestClassify(t *testing.T) {
	tt.Test(t, tt.Fn("Classify", Classify), tt.Table{
		// Errors of this package carry their kind.
		tt.Args(New(DivideByZero, "division by zero")).Rets(DivideByZero),
		tt.Args(New(Timeout, "gave up")).Rets(Timeout),
		tt.Args(fmt.Errorf("wrapped: %w", errors.New("x"))).Rets(BadValue),

		// Foreign errors classify by message.
		tt.Args(errors.New("dial tcp: connection refused")).Rets(NetworkFailure),
		tt.Args(errors.New("context deadline exceeded")).Rets(Timeout),
		tt.Args(errors.New("resource temporarily busy")).Rets(Unavailable),
		tt.Args(errors.New("403 Forbidden")).Rets(PermissionDenied),
		tt.Args(errors.New("502 Bad Gateway")).Rets(ExternalFailure),

		// Unclassifiable errors fall into the deterministic bucket.
		tt.Args(errors.New("something odd happened")).Rets(BadValue),
	})
}

func TestErrorMessageForm(t *testing.T) {
	err := TypeMismatch("count argument", "list or string", "number")
	want := "bad type: count argument must be list or string, but is number"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	if got := Arity("f arguments", 2, 2, 3).Error(); got != "arity mismatch: f arguments must be 2 values, but is 3" {
		t.Errorf("exact arity message: %q", got)
	}
	if got := Arity("f arguments", 1, -1, 0).Error(); got != "arity mismatch: f arguments must be 1 or more values, but is 0" {
		t.Errorf("open arity message: %q", got)
	}
}
