package flags

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/ekurganova/agrosense/internal/storage"
	"github.com/ekurganova/agrosense/internal/storage/memory"
)

func TestDefaultsAndPersistence(t *testing.T) {
	t.Parallel()
	st := memory.New()
	ctx := context.Background()

	s := NewService(ctx, st, zap.NewNop())
	if !s.Enabled("weatherAlerts") {
		t.Fatal("weatherAlerts should default on")
	}
	if s.Enabled("betaFeatures") {
		t.Fatal("betaFeatures should default off")
	}
	if s.Enabled("unknownFlag") {
		t.Fatal("unknown flags are off")
	}

	if err := s.Set(ctx, "betaFeatures", true); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh service over the same store sees the override.
	s2 := NewService(ctx, st, zap.NewNop())
	if !s2.Enabled("betaFeatures") {
		t.Fatal("override not persisted")
	}
}

func TestCorruptedFlagsFallBackToDefaults(t *testing.T) {
	t.Parallel()
	st := memory.New()
	ctx := context.Background()
	_ = st.Set(ctx, storage.KeyFlags, []byte("[not an object"))

	s := NewService(ctx, st, zap.NewNop())
	if !s.Enabled("offlineMode") {
		t.Fatal("defaults must apply after corruption")
	}
	if _, err := st.Get(ctx, storage.KeyFlags); err == nil {
		t.Fatal("corrupted record should be discarded")
	}
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	st := memory.New()
	ctx := context.Background()
	s := NewService(ctx, st, zap.NewNop())

	p := s.LoadPreferences(ctx)
	if p.Language != "en" || p.Units != "metric" {
		t.Fatalf("defaults: %+v", p)
	}

	p.Language = "lt"
	if err := s.SavePreferences(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := s.LoadPreferences(ctx); got.Language != "lt" {
		t.Fatalf("round trip: %+v", got)
	}

	// Corruption falls back to defaults and discards the record.
	_ = st.Set(ctx, storage.KeyPreferences, []byte("{broken"))
	if got := s.LoadPreferences(ctx); got.Language != "en" {
		t.Fatalf("corrupted prefs: %+v", got)
	}
}
