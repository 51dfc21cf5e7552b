// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"context"
	"errors"
)

// Common sentinels across storage/provider/service layers.
var (
	// ErrValidation indicates field-level input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates rejected email/password authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited indicates a temporary login lock due to repeated failures.
	ErrRateLimited = errors.New("rate limited")

	// ErrSessionExpired indicates a previously valid session is no longer honored.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrStorageCorrupted indicates persisted state failed structural validation.
	ErrStorageCorrupted = errors.New("storage corrupted")

	// ErrTimeout indicates a fetch exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// Retryable reports whether an error is transient and eligible for the cache
// retry policy. Validation, credential, conflict and not-found failures are the
// client-error class and are never retried.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrStorageCorrupted),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
