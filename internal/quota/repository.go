package quota

import (
	"context"

	"sharedrop/internal/database"
	"sharedrop/internal/models"
)

type Repository interface {
	// FindOrCreate returns the quota row for token, inserting a zero row if absent
	FindOrCreate(ctx context.Context, deviceToken string) (*models.DeviceQuota, error)
	Get(ctx context.Context, deviceToken string) (*models.DeviceQuota, error)
	// IncrementIfBelow bumps the count only while it is below ceiling
	IncrementIfBelow(ctx context.Context, deviceToken string, ceiling int) (*models.DeviceQuota, error)
}

type repository struct {
	*database.Repository
}

func NewRepository(db *database.DB) Repository {
	return &repository{
		Repository: database.NewRepository(db),
	}
}

func (r *repository) FindOrCreate(ctx context.Context, deviceToken string) (*models.DeviceQuota, error) {
	_, err := r.Exec(ctx, `
        INSERT INTO device_uploads (device_token, upload_count, created_at)
        VALUES ($1, 0, NOW())
        ON CONFLICT (device_token) DO NOTHING`, deviceToken)
	if err != nil {
		return nil, r.Error("create device quota", err)
	}
	return r.Get(ctx, deviceToken)
}

func (r *repository) Get(ctx context.Context, deviceToken string) (*models.DeviceQuota, error) {
	var q models.DeviceQuota
	err := r.Repository.Get(ctx, &q, `SELECT * FROM device_uploads WHERE device_token = $1`, deviceToken)
	if database.IsNoRows(err) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, r.Error("get device quota", err)
	}
	return &q, nil
}

// IncrementIfBelow is a single conditional update, so concurrent uploads
// for one device can never push the count past ceiling.
func (r *repository) IncrementIfBelow(ctx context.Context, deviceToken string, ceiling int) (*models.DeviceQuota, error) {
	var q models.DeviceQuota
	err := r.Repository.Get(ctx, &q, `
        INSERT INTO device_uploads (device_token, upload_count, last_upload_at, created_at)
        VALUES ($1, 1, NOW(), NOW())
        ON CONFLICT (device_token) DO UPDATE
            SET upload_count = device_uploads.upload_count + 1,
                last_upload_at = NOW()
            WHERE device_uploads.upload_count < $2
        RETURNING *`, deviceToken, ceiling)
	if database.IsNoRows(err) {
		return nil, ErrCeilingReached
	}
	if err != nil {
		return nil, r.Error("increment device quota", err)
	}
	return &q, nil
}
