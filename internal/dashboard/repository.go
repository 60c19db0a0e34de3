package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sharedrop/internal/database"
)

type Repository interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	GetRecentFiles(ctx context.Context, userID uuid.UUID, limit int) ([]RecentFile, error)
}

type repository struct {
	*database.Repository
}

func NewRepository(db *database.DB) Repository {
	return &repository{
		Repository: database.NewRepository(db),
	}
}

func (r *repository) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	stats := &Stats{}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		ownedQuery := `
            SELECT
                COUNT(*) AS total_files,
                COALESCE(SUM(size), 0) AS total_storage,
                COALESCE(SUM(download_count), 0) AS total_downloads,
                COUNT(*) FILTER (WHERE is_public) AS public_files
            FROM files
            WHERE owner_id = $1`

		if err := tx.GetContext(ctx, stats, ownedQuery, userID); err != nil {
			return err
		}

		sharedQuery := `
            SELECT COUNT(*)
            FROM file_shares fs
            JOIN files f ON f.id = fs.file_id
            WHERE fs.user_id = $1 AND f.owner_id <> $1`

		return tx.GetContext(ctx, &stats.SharedWithMe, sharedQuery, userID)
	})
	if err != nil {
		return nil, r.Error("get dashboard stats", err)
	}
	return stats, nil
}

func (r *repository) GetRecentFiles(ctx context.Context, userID uuid.UUID, limit int) ([]RecentFile, error) {
	query := `
        SELECT id, filename, size, download_count, is_public, created_at
        FROM files
        WHERE owner_id = $1
        ORDER BY created_at DESC
        LIMIT $2`

	files := []RecentFile{}
	if err := r.Select(ctx, &files, query, userID, limit); err != nil {
		return nil, r.Error("get recent files", err)
	}
	return files, nil
}
