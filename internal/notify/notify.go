// Package notify converts internal errors into user-facing messages. The
// notifier is an explicitly constructed instance passed to its consumers;
// diagnostic detail goes to the logger only and is never shown to the user.
package notify

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ekurganova/agrosense/internal/errs"
)

// Code classifies a handled error for the UI layer.
type Code string

const (
	CodeValidation     Code = "VALIDATION_FAILED"
	CodeAuthRequired   Code = "AUTH_REQUIRED"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeSessionExpired Code = "SESSION_EXPIRED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "ALREADY_EXISTS"
	CodeNetwork        Code = "NETWORK_ERROR"
	CodeUnknown        Code = "UNKNOWN_ERROR"
)

// Notice is the user-visible outcome of a handled error.
type Notice struct {
	Code    Code
	Message string
}

// Notifier maps errors to notices and logs the underlying cause.
type Notifier struct {
	log *zap.Logger
}

// New constructs a Notifier.
func New(log *zap.Logger) *Notifier {
	return &Notifier{log: log}
}

// Handle classifies err, logs it with its context, and returns the notice to
// surface. Validation messages carry the field detail verbatim since the
// caller produced it; everything else gets a fixed user-safe message.
func (n *Notifier) Handle(scope string, err error) Notice {
	n.log.Error("handled error", zap.String("scope", scope), zap.Error(err))

	switch {
	case errors.Is(err, errs.ErrValidation):
		return Notice{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, errs.ErrInvalidCredentials):
		return Notice{Code: CodeAuthRequired, Message: "Invalid email or password"}
	case errors.Is(err, errs.ErrRateLimited):
		return Notice{Code: CodeRateLimited, Message: "Too many attempts. Please try again later"}
	case errors.Is(err, errs.ErrSessionExpired):
		return Notice{Code: CodeSessionExpired, Message: "Your session has expired. Please log in again"}
	case errors.Is(err, errs.ErrNotFound):
		return Notice{Code: CodeNotFound, Message: "The requested data was not found"}
	case errors.Is(err, errs.ErrAlreadyExists):
		return Notice{Code: CodeConflict, Message: "An account with this email already exists"}
	case errors.Is(err, errs.ErrTimeout):
		return Notice{Code: CodeNetwork, Message: "Network error. Please check your connection"}
	default:
		return Notice{Code: CodeUnknown, Message: "An unexpected error occurred"}
	}
}
