// Package validate implements field-level validation for credentials and profiles.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ekurganova/agrosense/internal/errs"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Policy bounds for credentials. Registration applies the strong policy; login
// applies only the minimum length as a request filter (the provider stays
// authoritative for credential validity).
const (
	MinPasswordLen       = 6
	MinStrongPasswordLen = 8
	MinNameLen           = 2
)

// Email checks the address is non-empty and well-formed.
func Email(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", errs.ErrValidation)
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", errs.ErrValidation)
	}
	return nil
}

// LoginPassword applies the light login-path check (presence and minimum length).
func LoginPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", errs.ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, MinPasswordLen)
	}
	return nil
}

// StrongPassword applies the canonical credential-creation policy:
// at least 8 characters with upper case, lower case and a digit.
func StrongPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", errs.ErrValidation)
	}
	if len(password) < MinStrongPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, MinStrongPasswordLen)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password must contain upper case, lower case and a digit", errs.ErrValidation)
	}
	return nil
}

// Name checks a display name.
func Name(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrValidation)
	}
	if len(strings.TrimSpace(name)) < MinNameLen {
		return fmt.Errorf("%w: name must be at least %d characters", errs.ErrValidation, MinNameLen)
	}
	return nil
}

// SanitizeText strips angle brackets and trims the input to maxLen runes.
func SanitizeText(input string, maxLen int) string {
	s := strings.NewReplacer("<", "", ">", "").Replace(input)
	s = strings.TrimSpace(s)
	if maxLen > 0 {
		r := []rune(s)
		if len(r) > maxLen {
			s = string(r[:maxLen])
		}
	}
	return s
}
