package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/model"
)

// FarmRepo implements FarmRepository using PostgreSQL.
type FarmRepo struct{ db *DB }

// NewFarmRepo constructs a farm repository.
func NewFarmRepo(db *DB) *FarmRepo { return &FarmRepo{db: db} }

// List selects all farms for an owner, newest first.
func (r *FarmRepo) List(ctx context.Context, ownerID uuid.UUID) ([]model.Farm, error) {
	const q = `
SELECT id, owner_id, name, latitude, longitude, area_ha, soil_type, created_at
FROM farm_locations WHERE owner_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Farm
	for rows.Next() {
		var f model.Farm
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Latitude, &f.Longitude,
			&f.AreaHa, &f.SoilType, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Create inserts a new farm row.
func (r *FarmRepo) Create(ctx context.Context, f *model.Farm) error {
	const q = `
INSERT INTO farm_locations (id, owner_id, name, latitude, longitude, area_ha, soil_type)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, q, f.ID, f.OwnerID, f.Name, f.Latitude, f.Longitude, f.AreaHa, f.SoilType)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update rewrites the mutable fields of a farm owned by ownerID.
func (r *FarmRepo) Update(ctx context.Context, f *model.Farm) error {
	const q = `
UPDATE farm_locations SET name=$3, latitude=$4, longitude=$5, area_ha=$6, soil_type=$7
WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, f.ID, f.OwnerID, f.Name, f.Latitude, f.Longitude, f.AreaHa, f.SoilType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a farm owned by ownerID.
func (r *FarmRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const q = `DELETE FROM farm_locations WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CropRepo implements CropRepository using PostgreSQL.
type CropRepo struct{ db *DB }

// NewCropRepo constructs a crop repository.
func NewCropRepo(db *DB) *CropRepo { return &CropRepo{db: db} }

// List selects all crops for an owner, newest first.
func (r *CropRepo) List(ctx context.Context, ownerID uuid.UUID) ([]model.Crop, error) {
	const q = `
SELECT id, owner_id, farm_id, crop_type, variety, planted_at, harvest_due,
       area_ha, growth_stage, created_at, updated_at
FROM user_crops WHERE owner_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Crop
	for rows.Next() {
		var c model.Crop
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.FarmID, &c.CropType, &c.Variety,
			&c.PlantedAt, &c.HarvestDue, &c.AreaHa, &c.GrowthStage,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a new crop row.
func (r *CropRepo) Create(ctx context.Context, c *model.Crop) error {
	const q = `
INSERT INTO user_crops (id, owner_id, farm_id, crop_type, variety, planted_at,
                        harvest_due, area_ha, growth_stage)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.OwnerID, c.FarmID, c.CropType, c.Variety,
		c.PlantedAt, c.HarvestDue, c.AreaHa, c.GrowthStage)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update rewrites the mutable fields of a crop owned by ownerID.
func (r *CropRepo) Update(ctx context.Context, c *model.Crop) error {
	const q = `
UPDATE user_crops SET crop_type=$3, variety=$4, planted_at=$5, harvest_due=$6,
       area_ha=$7, growth_stage=$8, updated_at=now()
WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, c.ID, c.OwnerID, c.CropType, c.Variety,
		c.PlantedAt, c.HarvestDue, c.AreaHa, c.GrowthStage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a crop owned by ownerID.
func (r *CropRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const q = `DELETE FROM user_crops WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
