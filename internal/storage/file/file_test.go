package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ekurganova/agrosense/internal/errs"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "session"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "session", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "session")
	if err != nil || string(v) != `{"x":1}` {
		t.Fatalf("Get: %q %v", v, err)
	}
	if err := s.Delete(ctx, "session"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "session"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestStore_SlashAndUnsafeKeys(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	keys := []string{
		"login_attempts/ana@farm.example",
		"users/weird name+chars",
	}
	for _, k := range keys {
		if err := s.Set(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}
	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if err != nil || string(v) != k {
			t.Fatalf("Get(%q): %q %v", k, v, err)
		}
	}

	got, err := s.Keys(ctx, "login_attempts/")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 1 || got[0] != keys[0] {
		t.Fatalf("Keys: got %v", got)
	}
}

func TestStore_DotSegmentsStayInsideRoot(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	root := filepath.Join(base, "root")
	s, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	// Key parts of "." and ".." must map to files under the root, never to
	// path navigation.
	keys := []string{
		"users/a/../../../pwned",
		"users/./hidden",
		"..",
	}
	for _, k := range keys {
		if err := s.Set(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
		v, err := s.Get(ctx, k)
		if err != nil || string(v) != k {
			t.Fatalf("Get(%q): %q %v", k, v, err)
		}
	}

	if _, err := os.Stat(filepath.Join(base, "pwned")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("value written outside the storage root: %v", err)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "root" {
		t.Fatalf("unexpected entries beside the root: %v", entries)
	}

	got, err := s.Keys(ctx, "users/")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Keys: got %v", got)
	}
}
