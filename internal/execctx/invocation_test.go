package execctx

import (
	"errors"
	"testing"

	"github.com/oriys/ctxguard/internal/errs"
)

func TestInnerInvocation_NilFnIsNotImplemented(t *testing.T) {
	inv := &innerInvocation{args: []any{"x"}}
	_, err := inv.Invoke()
	var niErr *errs.NotImplementedError
	if !errors.As(err, &niErr) {
		t.Fatalf("expected NotImplementedError for a base invocation with no fn, got %v", err)
	}
}

func TestNewInnerInvocation_AlwaysRunsSuppliedFn(t *testing.T) {
	ran := false
	inv := NewInnerInvocation(nil, func(args []any) (any, error) { ran = true; return "ok", nil })
	result, err := inv.Invoke()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran || result != "ok" {
		t.Fatalf("expected supplied fn to run and return ok, ran=%v result=%v", ran, result)
	}
}
