// Package tempfiles implements the two anonymous, time-boxed upload
// products and the reaper that reclaims them once they expire.
//
// A "share" is kept for the share retention window and counts against the
// uploading device's quota. A "quick link" is kept for a shorter window and
// is not quota tracked. Both are unreachable from the moment they expire,
// whether or not a sweep has removed them yet.
package tempfiles

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"sharedrop/internal/apperr"
	"sharedrop/internal/models"
	"sharedrop/internal/storage"
	"sharedrop/internal/token"
	"sharedrop/internal/validation"
)

const tokenAttempts = 3

// QuotaTracker gates share uploads per device
type QuotaTracker interface {
	CheckAndReserve(ctx context.Context, deviceToken string) (*models.DeviceQuota, error)
	Commit(ctx context.Context, deviceToken string) (*models.DeviceQuota, error)
}

type Options struct {
	MaxSize            int64
	ShareRetention     time.Duration
	QuickLinkRetention time.Duration

	// Reaper
	BatchSize   int
	DeleteRate  float64 // blob deletes per second during sweeps
	OrphanGrace time.Duration
}

// UploadRequest carries an anonymous upload. Size is the declared size,
// -1 if unknown.
type UploadRequest struct {
	Body        io.Reader
	Filename    string
	MimeType    string
	Size        int64
	DeviceToken string
}

func (r *UploadRequest) withBody(body io.Reader) *UploadRequest {
	c := *r
	c.Body = body
	return &c
}

// ShareUpload is the result of a share upload; DeviceToken is the one
// the client sent or the one generated for it.
type ShareUpload struct {
	File        *models.TempFileRecord
	DeviceToken string
}

type Service struct {
	repo    Repository
	blobs   storage.Provider
	quota   QuotaTracker
	opts    Options
	limiter *rate.Limiter
	now     func() time.Time
}

func NewService(repo Repository, blobs storage.Provider, quota QuotaTracker, opts Options) *Service {
	burst := int(opts.DeleteRate)
	if burst < 1 {
		burst = 1
	}
	return &Service{
		repo:    repo,
		blobs:   blobs,
		quota:   quota,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.DeleteRate), burst),
		now:     time.Now,
	}
}

func (s *Service) MaxSize() int64 { return s.opts.MaxSize }

func (s *Service) tooLarge(op string) error {
	return apperr.PayloadTooLarge(op, "File exceeds maximum allowed size of "+humanize.IBytes(uint64(s.opts.MaxSize)))
}

// nonEmpty fails with a validation error when r has no data. The returned
// reader still yields every byte of r.
func nonEmpty(op string, r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Validation(op, "File is empty")
		}
		return nil, apperr.Internal(op, err)
	}
	return br, nil
}

// UploadShare runs the quota tracked path. Size, emptiness and quota are
// checked before anything is stored, and the quota is only charged once
// the blob and record both exist.
func (s *Service) UploadShare(ctx context.Context, req *UploadRequest) (*ShareUpload, error) {
	const op = "tempfiles.UploadShare"

	if err := validation.ValidateFilename(req.Filename); err != nil {
		return nil, apperr.Validation(op, "Invalid filename")
	}

	deviceToken := req.DeviceToken
	if deviceToken == "" {
		var err error
		if deviceToken, err = token.DeviceToken(); err != nil {
			return nil, apperr.Internal(op, err)
		}
	} else if err := validation.ValidateToken(deviceToken); err != nil {
		return nil, apperr.Validation(op, "Invalid device token")
	}

	if req.Size > s.opts.MaxSize {
		return nil, s.tooLarge(op)
	}
	body, err := nonEmpty(op, req.Body)
	if err != nil {
		return nil, err
	}

	if _, err := s.quota.CheckAndReserve(ctx, deviceToken); err != nil {
		return nil, err
	}

	file, err := s.create(ctx, op, models.ProductShare, req.withBody(body), deviceToken, s.opts.ShareRetention, token.ShareToken)
	if err != nil {
		return nil, err
	}

	if _, err := s.quota.Commit(ctx, deviceToken); err != nil {
		// Another upload from this device took the last slot
		if _, purgeErr := s.Purge(context.Background(), file); purgeErr != nil {
			log.Error().
				Err(purgeErr).
				Str("temp_id", file.ID.String()).
				Msg("error removing upload after quota commit failure")
		}
		return nil, err
	}

	log.Info().
		Str("temp_id", file.ID.String()).
		Str("device_token", deviceToken).
		Str("size", humanize.IBytes(uint64(file.Size))).
		Time("expires_at", file.ExpiresAt).
		Msg("share uploaded")
	return &ShareUpload{File: file, DeviceToken: deviceToken}, nil
}

// UploadQuickLink runs the short lived path without quota tracking
func (s *Service) UploadQuickLink(ctx context.Context, req *UploadRequest) (*models.TempFileRecord, error) {
	const op = "tempfiles.UploadQuickLink"

	if err := validation.ValidateFilename(req.Filename); err != nil {
		return nil, apperr.Validation(op, "Invalid filename")
	}
	if req.DeviceToken != "" {
		if err := validation.ValidateToken(req.DeviceToken); err != nil {
			return nil, apperr.Validation(op, "Invalid device token")
		}
	}
	if req.Size > s.opts.MaxSize {
		return nil, s.tooLarge(op)
	}
	body, err := nonEmpty(op, req.Body)
	if err != nil {
		return nil, err
	}

	file, err := s.create(ctx, op, models.ProductQuickLink, req.withBody(body), req.DeviceToken, s.opts.QuickLinkRetention, token.QuickLinkID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("temp_id", file.ID.String()).
		Str("size", humanize.IBytes(uint64(file.Size))).
		Time("expires_at", file.ExpiresAt).
		Msg("quick link uploaded")
	return file, nil
}

// create stores the blob and inserts the record, removing the blob again
// if the record cannot be written.
func (s *Service) create(ctx context.Context, op string, product models.Product, req *UploadRequest,
	deviceToken string, retention time.Duration, newToken func() (string, error)) (*models.TempFileRecord, error) {

	mimeType, body, err := storage.DetectMimeType(io.LimitReader(req.Body, s.opts.MaxSize+1), req.MimeType)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	obj, err := s.blobs.Store(ctx, body, req.Filename)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if obj.Size > s.opts.MaxSize {
		s.discardBlob(obj.Handle)
		return nil, s.tooLarge(op)
	}

	file := &models.TempFileRecord{
		ID:          uuid.New(),
		Product:     product,
		Filename:    req.Filename,
		StoredName:  storage.StoredName(obj.Handle),
		BlobHandle:  obj.Handle,
		MimeType:    mimeType,
		Size:        obj.Size,
		DeviceToken: deviceToken,
		ExpiresAt:   s.now().Add(retention),
	}

	for attempt := 1; ; attempt++ {
		if file.ShareToken, err = newToken(); err != nil {
			break
		}
		err = s.repo.Create(ctx, file)
		if err == nil || !errors.Is(err, ErrDuplicateToken) || attempt >= tokenAttempts {
			break
		}
		log.Warn().Str("temp_id", file.ID.String()).Msg("share token collision, retrying")
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("handle", obj.Handle).
			Msg("error saving temp file record, removing blob")
		s.discardBlob(obj.Handle)
		return nil, apperr.Internal(op, err)
	}
	return file, nil
}

func (s *Service) discardBlob(handle string) {
	if err := s.blobs.Delete(context.Background(), handle); err != nil {
		log.Error().
			Err(err).
			Str("handle", handle).
			Msg("error removing orphaned blob")
	}
}

// lookup resolves a token to a live record. An expired record is purged
// on the spot and reported as not found.
func (s *Service) lookup(ctx context.Context, op string, product models.Product, tok string) (*models.TempFileRecord, error) {
	if err := validation.ValidateToken(tok); err != nil {
		return nil, apperr.NotFound(op, "File not found or expired")
	}

	file, err := s.repo.GetByToken(ctx, product, tok)
	if errors.Is(err, ErrNoRows) {
		return nil, apperr.NotFound(op, "File not found or expired")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	if file.Expired(s.now()) {
		if _, err := s.Purge(context.Background(), file); err != nil {
			log.Error().
				Err(err).
				Str("temp_id", file.ID.String()).
				Msg("error purging expired temp file")
		}
		return nil, apperr.NotFound(op, "File not found or expired")
	}
	return file, nil
}

// Info returns a live record's metadata. A record whose blob is gone is
// reported as not found, the same as Download would.
func (s *Service) Info(ctx context.Context, product models.Product, tok string) (*models.TempFileRecord, error) {
	const op = "tempfiles.Info"

	file, err := s.lookup(ctx, op, product, tok)
	if err != nil {
		return nil, err
	}

	ok, err := s.blobs.Exists(ctx, file.BlobHandle)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if !ok {
		log.Warn().
			Str("temp_id", file.ID.String()).
			Str("handle", file.BlobHandle).
			Msg("temp file record without blob")
		return nil, apperr.NotFound(op, "File not found or expired")
	}
	return file, nil
}

// Download opens a live record's blob and counts the download
func (s *Service) Download(ctx context.Context, product models.Product, tok string) (*storage.Download, error) {
	const op = "tempfiles.Download"

	file, err := s.lookup(ctx, op, product, tok)
	if err != nil {
		return nil, err
	}

	body, err := s.blobs.Open(ctx, file.BlobHandle)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn().
			Str("temp_id", file.ID.String()).
			Str("handle", file.BlobHandle).
			Msg("temp file record without blob")
		return nil, apperr.NotFound(op, "File not found or expired")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	if err := s.repo.IncrementDownloadCount(ctx, file.ID); err != nil {
		log.Warn().
			Err(err).
			Str("temp_id", file.ID.String()).
			Msg("error incrementing download count")
	}

	return &storage.Download{
		Filename: file.Filename,
		MimeType: file.MimeType,
		Size:     file.Size,
		Body:     body,
	}, nil
}

// Purge removes the blob and then the record. Either may already be gone;
// a blob that cannot be deleted is logged and the record removed anyway.
// It reports whether this call removed the record.
func (s *Service) Purge(ctx context.Context, file *models.TempFileRecord) (bool, error) {
	if err := s.blobs.Delete(ctx, file.BlobHandle); err != nil {
		log.Warn().
			Err(err).
			Str("temp_id", file.ID.String()).
			Str("handle", file.BlobHandle).
			Msg("error deleting temp blob")
	}

	removed, err := s.repo.Delete(ctx, file.ID)
	if err != nil {
		return false, err
	}
	if removed {
		log.Debug().
			Str("temp_id", file.ID.String()).
			Str("product", file.Product.String()).
			Msg("temp file purged")
	}
	return removed, nil
}
