package dashboard

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sharedrop/internal/apperr"
)

const recentFilesLimit = 5

// Stats summarizes a user's owned files
type Stats struct {
	TotalFiles     int64        `db:"total_files" json:"totalFiles"`
	TotalStorage   int64        `db:"total_storage" json:"totalStorage"`
	StorageHuman   string       `db:"-" json:"totalStorageHuman"`
	TotalDownloads int64        `db:"total_downloads" json:"totalDownloads"`
	PublicFiles    int64        `db:"public_files" json:"publicFiles"`
	SharedWithMe   int64        `db:"-" json:"sharedWithMe"`
	RecentFiles    []RecentFile `db:"-" json:"recentFiles"`
}

type RecentFile struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Filename      string    `db:"filename" json:"filename"`
	Size          int64     `db:"size" json:"size"`
	DownloadCount int64     `db:"download_count" json:"downloadCount"`
	IsPublic      bool      `db:"is_public" json:"isPublic"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

type Service interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	const op = "dashboard.GetStats"

	if userID == uuid.Nil {
		return nil, apperr.Unauthorized(op, "Authentication required")
	}

	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	stats.StorageHuman = humanize.IBytes(uint64(stats.TotalStorage))

	recent, err := s.repo.GetRecentFiles(ctx, userID, recentFilesLimit)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	stats.RecentFiles = recent

	return stats, nil
}
