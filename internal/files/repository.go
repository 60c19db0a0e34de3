package files

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sharedrop/internal/database"
	"sharedrop/internal/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.FileRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FileRecord, error)
	GetByShareID(ctx context.Context, shareID string) (*models.FileRecord, error)
	// ListByOwner returns the owner's files, newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.FileRecord, error)
	// ListSharedWith returns files other users granted to userID, newest first
	ListSharedWith(ctx context.Context, userID uuid.UUID) ([]*models.FileRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Publish marks the file public, assigning shareID only if it has none yet
	Publish(ctx context.Context, id uuid.UUID, shareID string) (*models.FileRecord, error)
	// Unpublish clears the public flag but keeps the share id
	Unpublish(ctx context.Context, id uuid.UUID) (*models.FileRecord, error)
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) error

	AddShares(ctx context.Context, fileID uuid.UUID, userIDs []uuid.UUID) error
	SharedWith(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error)
	IsSharedWith(ctx context.Context, fileID, userID uuid.UUID) (bool, error)
}

type repository struct {
	*database.Repository
}

func NewRepository(db *database.DB) Repository {
	return &repository{
		Repository: database.NewRepository(db),
	}
}

func (r *repository) Create(ctx context.Context, file *models.FileRecord) error {
	query := `
        INSERT INTO files (id, filename, stored_name, blob_handle, mime_type, size, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING created_at, updated_at`

	err := r.QueryRow(ctx, query,
		file.ID, file.Filename, file.StoredName, file.BlobHandle, file.MimeType, file.Size, file.OwnerID,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return r.Error("create file", err)
	}
	return nil
}

func (r *repository) getOne(ctx context.Context, op, query string, args ...interface{}) (*models.FileRecord, error) {
	var file models.FileRecord
	err := r.Get(ctx, &file, query, args...)
	if database.IsNoRows(err) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, r.Error(op, err)
	}
	return &file, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.FileRecord, error) {
	return r.getOne(ctx, "get file by id", `SELECT * FROM files WHERE id = $1`, id)
}

func (r *repository) GetByShareID(ctx context.Context, shareID string) (*models.FileRecord, error) {
	return r.getOne(ctx, "get file by share id", `SELECT * FROM files WHERE share_id = $1`, shareID)
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.FileRecord, error) {
	files := []*models.FileRecord{}
	query := `SELECT * FROM files WHERE owner_id = $1 ORDER BY created_at DESC, id`
	if err := r.Select(ctx, &files, query, ownerID); err != nil {
		return nil, r.Error("list files by owner", err)
	}
	return files, nil
}

func (r *repository) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]*models.FileRecord, error) {
	files := []*models.FileRecord{}
	query := `
        SELECT f.* FROM files f
        JOIN file_shares s ON s.file_id = f.id
        WHERE s.user_id = $1
        ORDER BY f.created_at DESC, f.id`
	if err := r.Select(ctx, &files, query, userID); err != nil {
		return nil, r.Error("list shared files", err)
	}
	return files, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.Exec(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return r.Error("delete file", err)
	}
	return nil
}

func (r *repository) Publish(ctx context.Context, id uuid.UUID, shareID string) (*models.FileRecord, error) {
	query := `
        UPDATE files
        SET share_id = COALESCE(share_id, $2), is_public = TRUE, updated_at = NOW()
        WHERE id = $1
        RETURNING *`
	file, err := r.getOne(ctx, "publish file", query, id, shareID)
	if err != nil && database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateShareID, err)
	}
	return file, err
}

func (r *repository) Unpublish(ctx context.Context, id uuid.UUID) (*models.FileRecord, error) {
	query := `UPDATE files SET is_public = FALSE, updated_at = NOW() WHERE id = $1 RETURNING *`
	return r.getOne(ctx, "unpublish file", query, id)
}

func (r *repository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.Exec(ctx, `UPDATE files SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return r.Error("increment download count", err)
	}
	return nil
}

// AddShares inserts all grants in one transaction; existing grants are kept.
func (r *repository) AddShares(ctx context.Context, fileID uuid.UUID, userIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, userID := range userIDs {
			_, err := tx.ExecContext(ctx, `
                INSERT INTO file_shares (file_id, user_id, created_at)
                VALUES ($1, $2, NOW())
                ON CONFLICT (file_id, user_id) DO NOTHING`, fileID, userID)
			if err != nil {
				return r.Error("add file share", err)
			}
		}
		return nil
	})
}

func (r *repository) SharedWith(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `SELECT user_id FROM file_shares WHERE file_id = $1 ORDER BY created_at, user_id`
	if err := r.Select(ctx, &ids, query, fileID); err != nil {
		return nil, r.Error("list file shares", err)
	}
	return ids, nil
}

func (r *repository) IsSharedWith(ctx context.Context, fileID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM file_shares WHERE file_id = $1 AND user_id = $2)`
	if err := r.Get(ctx, &exists, query, fileID, userID); err != nil {
		return false, r.Error("check file share", err)
	}
	return exists, nil
}
