package datastore

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Resource key roots. A full key is root plus owner (or location) parameters.
const (
	KeyFarms      = "farm-locations"
	KeyCrops      = "user-crops"
	KeyActivities = "farming-activities"
	KeyAlerts     = "alerts"
	KeyMarket     = "market-prices"
	KeyWeather    = "weather-data"
)

// Background refresh intervals for dashboard keys.
const (
	WeatherRefresh = 30 * time.Minute
	AlertsRefresh  = 5 * time.Minute
	MarketRefresh  = time.Hour
)

// OwnerKey builds the per-owner resource key for a root.
func OwnerKey(root string, ownerID uuid.UUID) string {
	return root + "/" + ownerID.String()
}

// Mutation names the write operations mapped onto affected cache keys.
type Mutation string

const (
	MutFarmCreate     Mutation = "farm.create"
	MutFarmUpdate     Mutation = "farm.update"
	MutFarmDelete     Mutation = "farm.delete"
	MutCropCreate     Mutation = "crop.create"
	MutCropUpdate     Mutation = "crop.update"
	MutCropDelete     Mutation = "crop.delete"
	MutActivityCreate Mutation = "activity.create"
	MutAlertRead      Mutation = "alert.read"
)

// affectedRoots is the static mutation-to-key table. There is no automatic
// dependency tracking; a farm deletion also touches crops because crops
// reference their farm.
var affectedRoots = map[Mutation][]string{
	MutFarmCreate:     {KeyFarms},
	MutFarmUpdate:     {KeyFarms},
	MutFarmDelete:     {KeyFarms, KeyCrops},
	MutCropCreate:     {KeyCrops},
	MutCropUpdate:     {KeyCrops},
	MutCropDelete:     {KeyCrops, KeyActivities},
	MutActivityCreate: {KeyActivities},
	MutAlertRead:      {KeyAlerts},
}

// AffectedKeys resolves the cache keys invalidated by a mutation for an owner.
func AffectedKeys(m Mutation, ownerID uuid.UUID) []string {
	roots := affectedRoots[m]
	keys := make([]string, 0, len(roots))
	for _, r := range roots {
		keys = append(keys, OwnerKey(r, ownerID))
	}
	return keys
}
