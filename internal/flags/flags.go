// Package flags persists feature flags and user preferences in the key-value
// store. Corrupted records fall back to defaults rather than partial recovery.
package flags

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/storage"
)

// defaultFlags mirrors the shipped feature set.
var defaultFlags = map[string]bool{
	"advancedAnalytics":   true,
	"pushNotifications":   true,
	"offlineMode":         true,
	"betaFeatures":        false,
	"weatherAlerts":       true,
	"cropRecommendations": true,
	"marketPrices":        false,
}

// Preferences are per-user display settings.
type Preferences struct {
	Language    string `json:"language"`
	Units       string `json:"units"`
	Theme       string `json:"theme"`
	AlertEmails bool   `json:"alert_emails"`
}

// DefaultPreferences returns the shipped preference values.
func DefaultPreferences() Preferences {
	return Preferences{Language: "en", Units: "metric", Theme: "light"}
}

// Service loads and persists flags and preferences.
type Service struct {
	store storage.Store
	log   *zap.Logger

	mu    sync.Mutex
	flags map[string]bool
}

// NewService loads persisted flags, merging them over the defaults. A
// corrupted flag record is discarded and replaced by the defaults.
func NewService(ctx context.Context, store storage.Store, log *zap.Logger) *Service {
	s := &Service{store: store, log: log, flags: make(map[string]bool, len(defaultFlags))}
	for k, v := range defaultFlags {
		s.flags[k] = v
	}

	b, err := store.Get(ctx, storage.KeyFlags)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			log.Warn("feature flag load failed", zap.Error(err))
		}
		return s
	}
	var saved map[string]bool
	if err := json.Unmarshal(b, &saved); err != nil {
		log.Warn("discarding corrupted feature flags")
		_ = store.Delete(ctx, storage.KeyFlags)
		return s
	}
	for k, v := range saved {
		s.flags[k] = v
	}
	return s
}

// Enabled reports whether a flag is on. Unknown flags are off.
func (s *Service) Enabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[name]
}

// Set updates one flag and persists the full set.
func (s *Service) Set(ctx context.Context, name string, on bool) error {
	s.mu.Lock()
	s.flags[name] = on
	b, err := json.Marshal(s.flags)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.store.Set(ctx, storage.KeyFlags, b)
}

// LoadPreferences returns the persisted preferences, or the defaults when
// absent or corrupted.
func (s *Service) LoadPreferences(ctx context.Context) Preferences {
	b, err := s.store.Get(ctx, storage.KeyPreferences)
	if err != nil {
		return DefaultPreferences()
	}
	var p Preferences
	if err := json.Unmarshal(b, &p); err != nil {
		s.log.Warn("discarding corrupted preferences")
		_ = s.store.Delete(ctx, storage.KeyPreferences)
		return DefaultPreferences()
	}
	return p
}

// SavePreferences persists the preferences.
func (s *Service) SavePreferences(ctx context.Context, p Preferences) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, storage.KeyPreferences, b)
}
