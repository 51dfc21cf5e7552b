// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Identity is the authenticated principal's profile data. An Identity exists
// only while a backing Session is valid.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"` // unique
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	Location string    `json:"location,omitempty"`
	FarmSize float64   `json:"farm_size,omitempty"` // hectares
	Crops    []string  `json:"crops,omitempty"`
	ExpYears int       `json:"experience_years,omitempty"`
}

// Session is proof of authentication, opaque beyond its validity.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Identity    Identity  `json:"identity"`
}

// Valid reports whether the session is structurally complete and unexpired.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if s.Identity.ID == uuid.Nil || s.Identity.Email == "" || s.Identity.Name == "" {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// Farm is a registered farm location.
type Farm struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Latitude  float64
	Longitude float64
	AreaHa    float64
	SoilType  string
	CreatedAt time.Time
}

// Crop is a crop planted on one of the user's farms.
type Crop struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	FarmID      uuid.UUID
	CropType    string
	Variety     string
	PlantedAt   time.Time
	HarvestDue  time.Time
	AreaHa      float64
	GrowthStage string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Activity is a single farming activity record (sowing, irrigation, ...).
type Activity struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	CropID      uuid.UUID
	Kind        string
	Description string
	Cost        float64
	PerformedAt time.Time
	CreatedAt   time.Time
}

// Alert is an agricultural alert shown on the dashboard.
type Alert struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Severity  string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// MarketPrice is one observed price point for a crop type.
type MarketPrice struct {
	ID        uuid.UUID
	CropType  string
	Market    string
	Price     float64
	Currency  string
	Unit      string
	PriceDate time.Time
}

// WeatherRecord is one weather observation near a location.
type WeatherRecord struct {
	ID          uuid.UUID
	Latitude    float64
	Longitude   float64
	TempC       float64
	Humidity    float64
	RainfallMM  float64
	WindKPH     float64
	Condition   string
	RecordedOn  time.Time
	CreatedAt   time.Time
}
