package tempfiles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sharedrop/internal/database"
	"sharedrop/internal/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.TempFileRecord) error
	GetByToken(ctx context.Context, product models.Product, token string) (*models.TempFileRecord, error)
	// Delete reports whether a row was removed; a missing row is not an error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// ListExpired returns up to limit records with expires_at <= now, oldest first
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.TempFileRecord, error)
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) error
	// ReferencedHandles returns which of handles are still owned by any record
	ReferencedHandles(ctx context.Context, handles []string) (map[string]bool, error)
}

type repository struct {
	*database.Repository
}

func NewRepository(db *database.DB) Repository {
	return &repository{
		Repository: database.NewRepository(db),
	}
}

func (r *repository) Create(ctx context.Context, file *models.TempFileRecord) error {
	query := `
        INSERT INTO temp_files (id, product, filename, stored_name, blob_handle, mime_type, size,
                                device_token, share_token, download_count, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, NOW())
        RETURNING created_at`

	err := r.QueryRow(ctx, query,
		file.ID, file.Product, file.Filename, file.StoredName, file.BlobHandle, file.MimeType, file.Size,
		file.DeviceToken, file.ShareToken, file.ExpiresAt,
	).Scan(&file.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateToken, err)
		}
		return r.Error("create temp file", err)
	}
	return nil
}

func (r *repository) GetByToken(ctx context.Context, product models.Product, token string) (*models.TempFileRecord, error) {
	var file models.TempFileRecord
	err := r.Get(ctx, &file, `SELECT * FROM temp_files WHERE product = $1 AND share_token = $2`, product, token)
	if database.IsNoRows(err) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, r.Error("get temp file by token", err)
	}
	return &file, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.Exec(ctx, `DELETE FROM temp_files WHERE id = $1`, id)
	if err != nil {
		return false, r.Error("delete temp file", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.Error("delete temp file", err)
	}
	return n > 0, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.TempFileRecord, error) {
	files := []*models.TempFileRecord{}
	query := `SELECT * FROM temp_files WHERE expires_at <= $1 ORDER BY expires_at LIMIT $2`
	if err := r.Select(ctx, &files, query, now, limit); err != nil {
		return nil, r.Error("list expired temp files", err)
	}
	return files, nil
}

func (r *repository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.Exec(ctx, `UPDATE temp_files SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return r.Error("increment temp download count", err)
	}
	return nil
}

func (r *repository) ReferencedHandles(ctx context.Context, handles []string) (map[string]bool, error) {
	referenced := make(map[string]bool)
	if len(handles) == 0 {
		return referenced, nil
	}

	var found []string
	query := `
        SELECT blob_handle FROM files WHERE blob_handle = ANY($1)
        UNION
        SELECT blob_handle FROM temp_files WHERE blob_handle = ANY($1)`
	if err := r.Select(ctx, &found, query, handles); err != nil {
		return nil, r.Error("check referenced handles", err)
	}
	for _, h := range found {
		referenced[h] = true
	}
	return referenced, nil
}
