// Package limiter implements per-email rate limiting of authentication attempts.
package limiter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/storage"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login attempt is currently allowed and an
	// optional retry-after duration.
	Allow(ctx context.Context, email string) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, email string) error
	// Failure records a failed attempt and reports whether the threshold
	// was reached.
	Failure(ctx context.Context, email string) (bool, time.Duration, error)
}

// record is the persisted per-email counter.
type record struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// KV is a storage-backed Limiter with a fixed window and failure threshold.
// The counter read-modify-write runs under one lock so interleaved attempts
// for the same email never observe a torn update.
type KV struct {
	mu       sync.Mutex
	store    storage.Store
	window   time.Duration
	maxFails int
	now      func() time.Time
}

var _ Limiter = (*KV)(nil)

// New constructs a storage-backed limiter. Zero window/maxFails select the
// defaults (5 failures within 5 minutes).
func New(store storage.Store, window time.Duration, maxFails int) *KV {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if maxFails <= 0 {
		maxFails = 5
	}
	return &KV{store: store, window: window, maxFails: maxFails, now: time.Now}
}

func (l *KV) key(email string) string { return storage.PrefixLoginAttempts + email }

// load reads the record for email, treating corruption as absence.
func (l *KV) load(ctx context.Context, email string) (record, bool, error) {
	b, err := l.store.Get(ctx, l.key(email))
	if errors.Is(err, errs.ErrNotFound) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, err
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		// Corrupted counters are discarded, never repaired.
		_ = l.store.Delete(ctx, l.key(email))
		return record{}, false, nil
	}
	return rec, true, nil
}

// Allow reports whether login is currently permitted for email.
func (l *KV) Allow(ctx context.Context, email string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok, err := l.load(ctx, email)
	if err != nil {
		return false, 0, err
	}
	if !ok {
		return true, 0, nil
	}
	elapsed := l.now().Sub(rec.WindowStart)
	if elapsed >= l.window {
		return true, 0, nil
	}
	if rec.Count >= l.maxFails {
		return false, l.window - elapsed, nil
	}
	return true, 0, nil
}

// Success clears the counter for email.
func (l *KV) Success(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, l.key(email))
}

// Failure increments the counter, starting a new window if the prior one
// elapsed, and reports whether the threshold is now met.
func (l *KV) Failure(ctx context.Context, email string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok, err := l.load(ctx, email)
	if err != nil {
		return false, 0, err
	}
	now := l.now()
	if !ok || now.Sub(rec.WindowStart) >= l.window {
		rec = record{Count: 0, WindowStart: now}
	}
	rec.Count++

	b, err := json.Marshal(rec)
	if err != nil {
		return false, 0, err
	}
	if err := l.store.Set(ctx, l.key(email), b); err != nil {
		return false, 0, err
	}
	if rec.Count >= l.maxFails {
		return true, l.window - now.Sub(rec.WindowStart), nil
	}
	return false, 0, nil
}
