// Package storage defines the durable key-value store used for session blobs,
// rate-limit counters, feature flags and preferences. Values are opaque bytes;
// there are no transactions and no atomicity beyond a single key.
package storage

import "context"

// Store is a narrow key-value persistence interface implemented by the file,
// memory and redis backends.
type Store interface {
	// Get returns the value for key, or errs.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// Well-known keys and prefixes.
const (
	KeySession     = "session"
	KeyPreferences = "preferences"
	KeyFlags       = "feature_flags"

	PrefixLoginAttempts = "login_attempts/"
	PrefixUsers         = "users/"
)
