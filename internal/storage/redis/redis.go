// Package redis provides a Redis-backed storage.Store for deployments where
// client state is shared across devices.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/storage"
)

// Store keeps every value under keyPrefix+key in a single Redis database.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

var _ storage.Store = (*Store)(nil)

// New constructs a store for the given address. The prefix namespaces all keys
// so several applications can share one database.
func New(addr, password string, db int, prefix string) *Store {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if prefix == "" {
		prefix = "agrosense:"
	}
	return &Store{client: client, keyPrefix: prefix}
}

// NewWithClient wraps an existing client (used by tests).
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, keyPrefix: prefix}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns the value for key, or errs.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound
	}
	return v, err
}

// Set stores the value for key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.keyPrefix+key, value, 0).Err()
}

// Delete removes key; absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}

// Keys scans for keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val()[len(s.keyPrefix):])
	}
	return out, iter.Err()
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }
