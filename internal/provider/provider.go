// Package provider defines the backing auth/identity provider interface.
// The provider is authoritative for credential validity; client-side policy
// (rate limiting, structural validation) is layered on top of it.
package provider

import (
	"context"

	"github.com/ekurganova/agrosense/internal/model"
)

// EventType classifies session-change notifications.
type EventType int

const (
	// SignedIn is emitted after a successful SignIn or SignUp.
	SignedIn EventType = iota
	// SignedOut is emitted after SignOut.
	SignedOut
	// Expired is emitted when the provider stops honoring a session.
	Expired
)

// Event is a session-change notification. Only the Session is carried; any
// profile data beyond it must be fetched in a separate, explicitly sequenced
// step by the consumer.
type Event struct {
	Type    EventType
	Session *model.Session
}

// Profile carries the optional registration profile extensions.
type Profile struct {
	Name     string
	Phone    string
	Location string
	FarmSize float64
	Crops    []string
	ExpYears int
}

// Provider is the backing auth/identity provider.
type Provider interface {
	// SignIn authenticates email/password and returns a fresh session.
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	// SignUp registers a new identity and returns a session (auto-login).
	SignUp(ctx context.Context, email, password string, profile Profile) (*model.Session, error)
	// SignOut invalidates the current session. Safe to call without one.
	SignOut(ctx context.Context) error
	// Validate checks that the provider still honors the given session.
	// Returns errs.ErrSessionExpired when it does not.
	Validate(ctx context.Context, sess *model.Session) error
	// Events returns the stream of session-change notifications.
	Events() <-chan Event
}
