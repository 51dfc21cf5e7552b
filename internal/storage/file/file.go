// Package file provides a file-backed storage.Store: one file per key under a
// config directory, suitable for a single-user client process.
package file

import (
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/storage"
)

// Store persists each key as a 0600 file inside dir. Keys may contain '/',
// which maps to subdirectories; other unsafe characters are hex-escaped.
type Store struct {
	dir string
}

var _ storage.Store = (*Store)(nil)

// New creates the directory if needed and returns a file store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("file storage: empty dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the per-user config directory for the application.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "agrosense")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "agrosense")
}

func (s *Store) path(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = escape(p)
	}
	return filepath.Join(append([]string{s.dir}, parts...)...)
}

func escape(part string) string {
	// "." and ".." would resolve as path navigation and escape the root.
	if part == "." || part == ".." {
		var b strings.Builder
		for i := 0; i < len(part); i++ {
			b.WriteString("%" + hex.EncodeToString([]byte{part[i]}))
		}
		return b.String()
	}
	var b strings.Builder
	for i := 0; i < len(part); i++ {
		c := part[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '@':
			b.WriteByte(c)
		default:
			b.WriteString("%" + hex.EncodeToString([]byte{c}))
		}
	}
	return b.String()
}

// Get reads the value for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotFound
	}
	return b, err
}

// Set writes the value for key with owner-only permissions.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p, value, 0o600)
}

// Delete removes the key's file; absent files are a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Keys walks the directory tree and returns keys with the given prefix.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, rerr := filepath.Rel(s.dir, p)
		if rerr != nil {
			return rerr
		}
		key := unescapeKey(filepath.ToSlash(rel))
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
		return nil
	})
	return out, err
}

func unescapeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		if key[i] == '%' && i+2 < len(key) {
			if dec, err := hex.DecodeString(key[i+1 : i+3]); err == nil {
				b.Write(dec)
				i += 2
				continue
			}
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

// Close is a no-op for the file backend.
func (s *Store) Close() error { return nil }
