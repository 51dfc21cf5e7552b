package notify

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/ekurganova/agrosense/internal/errs"
)

func TestHandle_Classification(t *testing.T) {
	t.Parallel()
	n := New(zap.NewNop())

	cases := []struct {
		err  error
		code Code
	}{
		{fmt.Errorf("%w: email is required", errs.ErrValidation), CodeValidation},
		{errs.ErrInvalidCredentials, CodeAuthRequired},
		{errs.ErrRateLimited, CodeRateLimited},
		{errs.ErrSessionExpired, CodeSessionExpired},
		{fmt.Errorf("lookup: %w", errs.ErrNotFound), CodeNotFound},
		{errs.ErrAlreadyExists, CodeConflict},
		{fmt.Errorf("%w: dial tcp", errs.ErrTimeout), CodeNetwork},
		{errors.New("something odd"), CodeUnknown},
	}
	for _, c := range cases {
		got := n.Handle("test", c.err)
		if got.Code != c.code {
			t.Fatalf("Handle(%v): code %q, want %q", c.err, got.Code, c.code)
		}
		if got.Message == "" {
			t.Fatalf("Handle(%v): empty message", c.err)
		}
	}
}

func TestHandle_DoesNotLeakInternals(t *testing.T) {
	t.Parallel()
	n := New(zap.NewNop())

	internal := errors.New("pq: connection refused host=10.0.0.3")
	got := n.Handle("datastore", internal)
	if got.Message == internal.Error() {
		t.Fatal("internal error text leaked to the user message")
	}
}

func TestHandle_ValidationMessagePassesThrough(t *testing.T) {
	t.Parallel()
	n := New(zap.NewNop())

	err := fmt.Errorf("%w: name must be at least 2 characters", errs.ErrValidation)
	got := n.Handle("register", err)
	if got.Message != err.Error() {
		t.Fatalf("validation detail lost: %q", got.Message)
	}
}
