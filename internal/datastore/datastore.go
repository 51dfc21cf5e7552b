// Package datastore defines resource-scoped CRUD interfaces over the backing
// data store, implemented by concrete backends. Every method takes the acting
// owner explicitly so "which identity made this request" stays auditable.
package datastore

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ekurganova/agrosense/internal/model"
)

// FarmRepository provides CRUD access to farm locations.
type FarmRepository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Farm, error)
	Create(ctx context.Context, f *model.Farm) error
	Update(ctx context.Context, f *model.Farm) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// CropRepository provides CRUD access to planted crops.
type CropRepository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Crop, error)
	Create(ctx context.Context, c *model.Crop) error
	Update(ctx context.Context, c *model.Crop) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// ActivityRepository records farming activities.
type ActivityRepository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Activity, error)
	Create(ctx context.Context, a *model.Activity) error
}

// AlertRepository provides dashboard alerts. Absence of alerts is a normal
// outcome and yields an empty slice, never an error.
type AlertRepository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Alert, error)
	MarkRead(ctx context.Context, ownerID, id uuid.UUID) error
	Create(ctx context.Context, a *model.Alert) error
}

// MarketRepository serves observed market prices.
type MarketRepository interface {
	Latest(ctx context.Context, limit int) ([]model.MarketPrice, error)
	ForCrop(ctx context.Context, cropType string, limit int) ([]model.MarketPrice, error)
}

// WeatherRepository serves weather observations near a location.
type WeatherRepository interface {
	ForLocation(ctx context.Context, lat, lon float64, days int) ([]model.WeatherRecord, error)
	Create(ctx context.Context, w *model.WeatherRecord) error
}
