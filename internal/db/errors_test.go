package db

import (
	"context"
	"errors"
	"testing"
)

func TestError_WrapsOperation(t *testing.T) {
	err := &Error{Op: OpGet, Err: context.DeadlineExceeded}

	if err.Error() != "GET: context deadline exceeded" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected Unwrap to expose the cause")
	}

	var dbErr *Error
	if !errors.As(error(err), &dbErr) || dbErr.Op != OpGet {
		t.Errorf("expected *Error with op GET, got %v", dbErr)
	}
}
