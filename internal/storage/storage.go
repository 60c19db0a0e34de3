package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrNotFound      = errors.New("blob not found")
	ErrInvalidHandle = errors.New("invalid blob handle")
)

// Object describes a blob that was just written
type Object struct {
	Handle string
	Size   int64
}

type ObjectInfo struct {
	Handle       string
	Size         int64
	ModifiedTime time.Time
}

// Provider is the blob store. Handles are opaque to callers.
type Provider interface {
	// Store writes r to a fresh location derived from suggestedName and
	// returns the handle and the number of bytes written
	Store(ctx context.Context, r io.Reader, suggestedName string) (*Object, error)

	// Open returns a reader over the blob, ErrNotFound if it is missing
	Open(ctx context.Context, handle string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, handle string) error

	Exists(ctx context.Context, handle string) (bool, error)

	// List returns every blob whose handle starts with prefix
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Close cleans up any resources
	Close() error
}

// Config holds configuration for storage providers
type Config struct {
	// Provider type ("local", "gcs" or "s3")
	Provider string

	LocalPath string

	// GCS
	ProjectID       string
	BucketName      string
	EmulatorHost    string
	CredentialsJSON string // base64 encoded

	// S3 compatible
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// NewProvider creates a storage provider based on configuration
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath)
	case "gcs":
		return NewGCSStorage(ctx, cfg)
	case "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}
