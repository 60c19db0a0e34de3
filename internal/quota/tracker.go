// Package quota tracks how many anonymous share uploads each device token
// has made and enforces a fixed lifetime ceiling.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/apperr"
	"sharedrop/internal/models"
)

const DefaultCeiling = 5

type Tracker struct {
	repo    Repository
	ceiling int
}

func NewTracker(repo Repository, ceiling int) (*Tracker, error) {
	if ceiling <= 0 {
		return nil, fmt.Errorf("quota ceiling must be positive, got %d", ceiling)
	}
	return &Tracker{repo: repo, ceiling: ceiling}, nil
}

func (t *Tracker) Ceiling() int { return t.ceiling }

// CheckAndReserve makes sure a row exists for the device and fails with
// QuotaExceeded when the ceiling is already reached. It never increments.
func (t *Tracker) CheckAndReserve(ctx context.Context, deviceToken string) (*models.DeviceQuota, error) {
	const op = "quota.CheckAndReserve"

	q, err := t.repo.FindOrCreate(ctx, deviceToken)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if q.UploadCount >= t.ceiling {
		log.Info().
			Str("device_token", deviceToken).
			Int("upload_count", q.UploadCount).
			Int("ceiling", t.ceiling).
			Msg("device upload ceiling reached")
		return nil, t.exceeded(op)
	}
	return q, nil
}

// Commit records one accepted upload. A concurrent request that took the
// last slot first makes this fail with QuotaExceeded.
func (t *Tracker) Commit(ctx context.Context, deviceToken string) (*models.DeviceQuota, error) {
	const op = "quota.Commit"

	q, err := t.repo.IncrementIfBelow(ctx, deviceToken, t.ceiling)
	if errors.Is(err, ErrCeilingReached) {
		return nil, t.exceeded(op)
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	log.Debug().
		Str("device_token", deviceToken).
		Int("upload_count", q.UploadCount).
		Msg("device upload committed")
	return q, nil
}

// Get reports the device's state; unseen devices read as zero uploads.
func (t *Tracker) Get(ctx context.Context, deviceToken string) (*models.DeviceQuota, error) {
	q, err := t.repo.Get(ctx, deviceToken)
	if errors.Is(err, ErrNoRows) {
		return &models.DeviceQuota{DeviceToken: deviceToken}, nil
	}
	if err != nil {
		return nil, apperr.Internal("quota.Get", err)
	}
	return q, nil
}

func (t *Tracker) exceeded(op string) error {
	return apperr.QuotaExceeded(op, fmt.Sprintf("Upload limit reached. Maximum %d uploads per device", t.ceiling))
}
