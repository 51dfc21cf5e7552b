package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/model"
)

// ActivityRepo implements ActivityRepository using PostgreSQL.
type ActivityRepo struct{ db *DB }

// NewActivityRepo constructs an activity repository.
func NewActivityRepo(db *DB) *ActivityRepo { return &ActivityRepo{db: db} }

// List selects all activities for an owner, most recent first.
func (r *ActivityRepo) List(ctx context.Context, ownerID uuid.UUID) ([]model.Activity, error) {
	const q = `
SELECT id, owner_id, crop_id, kind, description, cost, performed_at, created_at
FROM farming_activities WHERE owner_id=$1 ORDER BY performed_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.CropID, &a.Kind, &a.Description,
			&a.Cost, &a.PerformedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new activity row.
func (r *ActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	const q = `
INSERT INTO farming_activities (id, owner_id, crop_id, kind, description, cost, performed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.OwnerID, a.CropID, a.Kind, a.Description, a.Cost, a.PerformedAt)
	return err
}

// AlertRepo implements AlertRepository using PostgreSQL.
type AlertRepo struct{ db *DB }

// NewAlertRepo constructs an alert repository.
func NewAlertRepo(db *DB) *AlertRepo { return &AlertRepo{db: db} }

// List selects all alerts for an owner, newest first. No alerts is an empty
// slice, not an error.
func (r *AlertRepo) List(ctx context.Context, ownerID uuid.UUID) ([]model.Alert, error) {
	const q = `
SELECT id, owner_id, severity, title, message, is_read, created_at
FROM agricultural_alerts WHERE owner_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Alert{}
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Severity, &a.Title, &a.Message,
			&a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRead flags an alert as read.
func (r *AlertRepo) MarkRead(ctx context.Context, ownerID, id uuid.UUID) error {
	const q = `UPDATE agricultural_alerts SET is_read=true WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Create inserts a new alert row.
func (r *AlertRepo) Create(ctx context.Context, a *model.Alert) error {
	const q = `
INSERT INTO agricultural_alerts (id, owner_id, severity, title, message, is_read)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.OwnerID, a.Severity, a.Title, a.Message, a.Read)
	return err
}

// MarketRepo implements MarketRepository using PostgreSQL.
type MarketRepo struct{ db *DB }

// NewMarketRepo constructs a market-price repository.
func NewMarketRepo(db *DB) *MarketRepo { return &MarketRepo{db: db} }

func scanPrices(rows pgx.Rows) ([]model.MarketPrice, error) {
	defer rows.Close()
	var out []model.MarketPrice
	for rows.Next() {
		var p model.MarketPrice
		if err := rows.Scan(&p.ID, &p.CropType, &p.Market, &p.Price, &p.Currency,
			&p.Unit, &p.PriceDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Latest selects the most recent price points across all crops.
func (r *MarketRepo) Latest(ctx context.Context, limit int) ([]model.MarketPrice, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, crop_type, market, price, currency, unit, price_date
FROM market_prices ORDER BY price_date DESC LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return scanPrices(rows)
}

// ForCrop selects recent prices for one crop type.
func (r *MarketRepo) ForCrop(ctx context.Context, cropType string, limit int) ([]model.MarketPrice, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT id, crop_type, market, price, currency, unit, price_date
FROM market_prices WHERE crop_type=$1 ORDER BY price_date DESC LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, cropType, limit)
	if err != nil {
		return nil, err
	}
	return scanPrices(rows)
}

// WeatherRepo implements WeatherRepository using PostgreSQL.
type WeatherRepo struct{ db *DB }

// NewWeatherRepo constructs a weather repository.
func NewWeatherRepo(db *DB) *WeatherRepo { return &WeatherRepo{db: db} }

// ForLocation selects observations within ~0.1 degrees of a point over the
// last N days, newest first.
func (r *WeatherRepo) ForLocation(ctx context.Context, lat, lon float64, days int) ([]model.WeatherRecord, error) {
	if days <= 0 {
		days = 7
	}
	const q = `
SELECT id, latitude, longitude, temp_c, humidity, rainfall_mm, wind_kph, condition, recorded_on, created_at
FROM weather_data
WHERE latitude BETWEEN $1-0.1 AND $1+0.1
  AND longitude BETWEEN $2-0.1 AND $2+0.1
  AND recorded_on >= now() - make_interval(days => $3)
ORDER BY recorded_on DESC`
	rows, err := r.db.Pool.Query(ctx, q, lat, lon, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeatherRecord
	for rows.Next() {
		var w model.WeatherRecord
		if err := rows.Scan(&w.ID, &w.Latitude, &w.Longitude, &w.TempC, &w.Humidity,
			&w.RainfallMM, &w.WindKPH, &w.Condition, &w.RecordedOn, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Create inserts a new weather observation.
func (r *WeatherRepo) Create(ctx context.Context, w *model.WeatherRecord) error {
	const q = `
INSERT INTO weather_data (id, latitude, longitude, temp_c, humidity, rainfall_mm, wind_kph, condition, recorded_on)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.Pool.Exec(ctx, q, w.ID, w.Latitude, w.Longitude, w.TempC, w.Humidity,
		w.RainfallMM, w.WindKPH, w.Condition, w.RecordedOn)
	return err
}
