// Package files manages files owned by registered users: uploads,
// downloads, share links and per-user grants.
package files

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sharedrop/internal/apperr"
	"sharedrop/internal/models"
	"sharedrop/internal/storage"
	"sharedrop/internal/token"
	"sharedrop/internal/validation"
)

const shareIDAttempts = 3

// UserDirectory resolves grantee ids against the known users
type UserDirectory interface {
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// UploadRequest carries an authenticated upload. Size is the size the
// client declared, -1 if unknown; the stored size is what was written.
type UploadRequest struct {
	Body     io.Reader
	Filename string
	MimeType string
	Size     int64
	OwnerID  uuid.UUID
}

type Service struct {
	repo    Repository
	blobs   storage.Provider
	users   UserDirectory
	maxSize int64
}

func NewService(repo Repository, blobs storage.Provider, users UserDirectory, maxSize int64) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		users:   users,
		maxSize: maxSize,
	}
}

func (s *Service) MaxSize() int64 { return s.maxSize }

// Upload stores the payload and creates the owning record. A failed
// record insert removes the blob again.
func (s *Service) Upload(ctx context.Context, req *UploadRequest) (*models.FileRecord, error) {
	const op = "files.Upload"

	if req.OwnerID == uuid.Nil {
		return nil, apperr.Unauthorized(op, "Authentication required")
	}
	if err := validation.ValidateFilename(req.Filename); err != nil {
		return nil, apperr.Validation(op, "Invalid filename")
	}
	if req.Size > s.maxSize {
		return nil, apperr.PayloadTooLarge(op, "File exceeds maximum allowed size of "+humanize.IBytes(uint64(s.maxSize)))
	}

	br := bufio.NewReader(req.Body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Validation(op, "File is empty")
		}
		return nil, apperr.Internal(op, err)
	}

	mimeType, body, err := storage.DetectMimeType(io.LimitReader(br, s.maxSize+1), req.MimeType)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	obj, err := s.blobs.Store(ctx, body, req.Filename)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if obj.Size > s.maxSize {
		s.discardBlob(obj.Handle)
		return nil, apperr.PayloadTooLarge(op, "File exceeds maximum allowed size of "+humanize.IBytes(uint64(s.maxSize)))
	}

	file := &models.FileRecord{
		ID:         uuid.New(),
		Filename:   req.Filename,
		StoredName: storage.StoredName(obj.Handle),
		BlobHandle: obj.Handle,
		MimeType:   mimeType,
		Size:       obj.Size,
		OwnerID:    req.OwnerID,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		log.Error().
			Err(err).
			Str("handle", obj.Handle).
			Msg("error saving file record, removing blob")
		s.discardBlob(obj.Handle)
		return nil, apperr.Internal(op, err)
	}

	log.Info().
		Str("file_id", file.ID.String()).
		Str("owner_id", file.OwnerID.String()).
		Str("size", humanize.IBytes(uint64(file.Size))).
		Str("mime_type", file.MimeType).
		Msg("file uploaded")
	return file, nil
}

// discardBlob runs detached from the request so a canceled client does
// not leave the blob behind.
func (s *Service) discardBlob(handle string) {
	if err := s.blobs.Delete(context.Background(), handle); err != nil {
		log.Error().
			Err(err).
			Str("handle", handle).
			Msg("error removing orphaned blob")
	}
}

func (s *Service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]*models.FileRecord, error) {
	files, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("files.ListOwned", err)
	}
	return files, nil
}

func (s *Service) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]*models.FileRecord, error) {
	files, err := s.repo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("files.ListSharedWithMe", err)
	}
	return files, nil
}

func (s *Service) get(ctx context.Context, op string, id uuid.UUID) (*models.FileRecord, error) {
	file, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return nil, apperr.NotFound(op, "File not found")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return file, nil
}

func (s *Service) getOwned(ctx context.Context, op string, id, principal uuid.UUID) (*models.FileRecord, error) {
	file, err := s.get(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !file.IsOwnedBy(principal) {
		return nil, apperr.Forbidden(op, "You do not own this file")
	}
	return file, nil
}

// GetDetails returns the record with its grant list. Owner only.
func (s *Service) GetDetails(ctx context.Context, id, principal uuid.UUID) (*models.FileRecord, error) {
	const op = "files.GetDetails"

	file, err := s.getOwned(ctx, op, id, principal)
	if err != nil {
		return nil, err
	}
	if file.SharedWith, err = s.repo.SharedWith(ctx, id); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return file, nil
}

// Download opens the blob for the owner or a user the file was shared with.
func (s *Service) Download(ctx context.Context, id, principal uuid.UUID) (*storage.Download, error) {
	const op = "files.Download"

	file, err := s.get(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !file.IsOwnedBy(principal) {
		shared, err := s.repo.IsSharedWith(ctx, id, principal)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		if !shared {
			return nil, apperr.Forbidden(op, "Access denied")
		}
	}
	return s.open(ctx, op, file)
}

func (s *Service) open(ctx context.Context, op string, file *models.FileRecord) (*storage.Download, error) {
	body, err := s.blobs.Open(ctx, file.BlobHandle)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn().
			Str("file_id", file.ID.String()).
			Str("handle", file.BlobHandle).
			Msg("file record without blob")
		return nil, apperr.NotFound(op, "File not found")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	if err := s.repo.IncrementDownloadCount(ctx, file.ID); err != nil {
		log.Warn().
			Err(err).
			Str("file_id", file.ID.String()).
			Msg("error incrementing download count")
	}

	return &storage.Download{
		Filename: file.Filename,
		MimeType: file.MimeType,
		Size:     file.Size,
		Body:     body,
	}, nil
}

// Delete removes the record first; a blob that fails to delete is left
// for the storage sync.
func (s *Service) Delete(ctx context.Context, id, principal uuid.UUID) error {
	const op = "files.Delete"

	file, err := s.getOwned(ctx, op, id, principal)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal(op, err)
	}
	if err := s.blobs.Delete(ctx, file.BlobHandle); err != nil {
		log.Error().
			Err(err).
			Str("file_id", id.String()).
			Str("handle", file.BlobHandle).
			Msg("error deleting blob")
	}

	log.Info().
		Str("file_id", id.String()).
		Str("owner_id", principal.String()).
		Msg("file deleted")
	return nil
}

// IssueShareLink makes the file public. A file that already has a share
// id keeps it, so issuing twice yields the same link.
func (s *Service) IssueShareLink(ctx context.Context, id, principal uuid.UUID) (*models.FileRecord, error) {
	const op = "files.IssueShareLink"

	if _, err := s.getOwned(ctx, op, id, principal); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		shareID, err := token.ShareID()
		if err != nil {
			return nil, apperr.Internal(op, err)
		}

		file, err := s.repo.Publish(ctx, id, shareID)
		switch {
		case err == nil:
			log.Info().
				Str("file_id", id.String()).
				Str("share_id", *file.ShareID).
				Msg("share link issued")
			return file, nil
		case errors.Is(err, ErrNoRows):
			return nil, apperr.NotFound(op, "File not found")
		case errors.Is(err, ErrDuplicateShareID) && attempt < shareIDAttempts:
			log.Warn().Str("file_id", id.String()).Msg("share id collision, retrying")
		default:
			return nil, apperr.Internal(op, err)
		}
	}
}

// RevokeShareLink hides the file again. The share id stays reserved and
// resolves to Forbidden from now on.
func (s *Service) RevokeShareLink(ctx context.Context, id, principal uuid.UUID) (*models.FileRecord, error) {
	const op = "files.RevokeShareLink"

	if _, err := s.getOwned(ctx, op, id, principal); err != nil {
		return nil, err
	}
	file, err := s.repo.Unpublish(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return nil, apperr.NotFound(op, "File not found")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	log.Info().Str("file_id", id.String()).Msg("share link revoked")
	return file, nil
}

// Resolve finds a public file by share id
func (s *Service) Resolve(ctx context.Context, shareID string) (*models.FileRecord, error) {
	const op = "files.Resolve"

	if err := validation.ValidateToken(shareID); err != nil {
		return nil, apperr.NotFound(op, "Shared file not found")
	}
	file, err := s.repo.GetByShareID(ctx, shareID)
	if errors.Is(err, ErrNoRows) {
		return nil, apperr.NotFound(op, "Shared file not found")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if !file.IsPublic {
		return nil, apperr.Forbidden(op, "This file is no longer shared")
	}
	return file, nil
}

func (s *Service) DownloadShared(ctx context.Context, shareID string) (*storage.Download, error) {
	file, err := s.Resolve(ctx, shareID)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, "files.DownloadShared", file)
}

// GrantAccess adds grantees to the file's share list and returns the full
// list. Granting twice is a no-op.
func (s *Service) GrantAccess(ctx context.Context, id, principal uuid.UUID, grantees []uuid.UUID) ([]uuid.UUID, error) {
	const op = "files.GrantAccess"

	file, err := s.getOwned(ctx, op, id, principal)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(grantees))
	unique := make([]uuid.UUID, 0, len(grantees))
	for _, g := range grantees {
		if g == uuid.Nil || g == file.OwnerID || seen[g] {
			continue
		}
		seen[g] = true
		unique = append(unique, g)
	}

	if len(unique) > 0 {
		found, err := s.users.ExistingIDs(ctx, unique)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		if len(found) != len(unique) {
			return nil, apperr.Validation(op, "One or more users do not exist")
		}
		if err := s.repo.AddShares(ctx, id, unique); err != nil {
			return nil, apperr.Internal(op, err)
		}
	}

	shared, err := s.repo.SharedWith(ctx, id)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	log.Info().
		Str("file_id", id.String()).
		Int("granted", len(unique)).
		Int("shared_with", len(shared)).
		Msg("file access granted")
	return shared, nil
}
