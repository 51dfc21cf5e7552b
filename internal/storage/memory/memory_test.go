package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ekurganova/agrosense/internal/errs"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "k")
	if err != nil || string(v) != "v1" {
		t.Fatalf("Get: %q %v", v, err)
	}

	// Returned slices are copies.
	v[0] = 'X'
	v2, _ := s.Get(ctx, "k")
	if string(v2) != "v1" {
		t.Fatalf("stored value mutated: %q", v2)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestStore_Keys(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	_ = s.Set(ctx, "users/a@b.com", []byte("1"))
	_ = s.Set(ctx, "users/c@d.com", []byte("2"))
	_ = s.Set(ctx, "session", []byte("3"))

	keys, err := s.Keys(ctx, "users/")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("want 2 keys, got %v", keys)
	}
}
