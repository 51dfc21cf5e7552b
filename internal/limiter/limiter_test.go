package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/ekurganova/agrosense/internal/storage"
	"github.com/ekurganova/agrosense/internal/storage/memory"
)

func newTestLimiter(t *testing.T) (*KV, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(memory.New(), 5*time.Minute, 5)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_BlocksAfterThreshold(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	email := "ana@farm.example"

	for i := 0; i < 4; i++ {
		blocked, _, err := l.Failure(ctx, email)
		if err != nil || blocked {
			t.Fatalf("failure %d: blocked=%v err=%v", i+1, blocked, err)
		}
		ok, _, err := l.Allow(ctx, email)
		if err != nil || !ok {
			t.Fatalf("allow after %d failures: ok=%v err=%v", i+1, ok, err)
		}
	}

	blocked, retryAfter, err := l.Failure(ctx, email)
	if err != nil || !blocked {
		t.Fatalf("5th failure: blocked=%v err=%v", blocked, err)
	}
	if retryAfter <= 0 {
		t.Fatalf("want positive retry-after, got %v", retryAfter)
	}

	ok, _, err := l.Allow(ctx, email)
	if err != nil || ok {
		t.Fatalf("allow while blocked: ok=%v err=%v", ok, err)
	}
}

func TestLimiter_WindowExpiryResets(t *testing.T) {
	t.Parallel()
	l, now := newTestLimiter(t)
	ctx := context.Background()
	email := "ana@farm.example"

	for i := 0; i < 5; i++ {
		_, _, _ = l.Failure(ctx, email)
	}
	if ok, _, _ := l.Allow(ctx, email); ok {
		t.Fatal("expected block at threshold")
	}

	*now = now.Add(5*time.Minute + time.Second)
	if ok, _, _ := l.Allow(ctx, email); !ok {
		t.Fatal("expected allow after window elapsed")
	}

	// A failure after the window starts a fresh count.
	blocked, _, err := l.Failure(ctx, email)
	if err != nil || blocked {
		t.Fatalf("fresh-window failure: blocked=%v err=%v", blocked, err)
	}
}

func TestLimiter_SuccessResets(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	email := "ana@farm.example"

	for i := 0; i < 5; i++ {
		_, _, _ = l.Failure(ctx, email)
	}
	if err := l.Success(ctx, email); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if ok, _, _ := l.Allow(ctx, email); !ok {
		t.Fatal("expected allow after reset")
	}
}

func TestLimiter_ScopedPerEmail(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, _ = l.Failure(ctx, "locked@farm.example")
	}
	if ok, _, _ := l.Allow(ctx, "locked@farm.example"); ok {
		t.Fatal("expected block for locked email")
	}
	if ok, _, _ := l.Allow(ctx, "other@farm.example"); !ok {
		t.Fatal("other email must not be affected")
	}
}

func TestLimiter_CorruptedRecordDiscarded(t *testing.T) {
	t.Parallel()
	st := memory.New()
	l := New(st, 5*time.Minute, 5)
	ctx := context.Background()
	email := "ana@farm.example"

	_ = st.Set(ctx, storage.PrefixLoginAttempts+email, []byte("{not json"))
	ok, _, err := l.Allow(ctx, email)
	if err != nil || !ok {
		t.Fatalf("corrupted record: ok=%v err=%v", ok, err)
	}
	if _, err := st.Get(ctx, storage.PrefixLoginAttempts+email); err == nil {
		t.Fatal("corrupted record should have been deleted")
	}
}
