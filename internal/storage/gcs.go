package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSStorageProvider struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	bucketName string
}

func NewGCSStorage(ctx context.Context, cfg Config) (*GCSStorageProvider, error) {
	var client *storage.Client
	var err error

	switch {
	case cfg.EmulatorHost != "":
		log.Debug().
			Str("emulator_host", cfg.EmulatorHost).
			Msg("using GCS emulator")
		client, err = storage.NewClient(
			ctx,
			option.WithEndpoint(fmt.Sprintf("http://%s/storage/v1/", cfg.EmulatorHost)),
			option.WithoutAuthentication(),
		)
	case cfg.CredentialsJSON != "":
		decodedCreds, decodeErr := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if decodeErr != nil {
			return nil, fmt.Errorf("invalid base64 credentials: %w", decodeErr)
		}
		client, err = storage.NewClient(ctx, option.WithCredentialsJSON(decodedCreds))
	default:
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	bucket := client.Bucket(cfg.BucketName)

	_, err = bucket.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		log.Info().
			Str("bucket", cfg.BucketName).
			Msg("bucket does not exist, creating...")
		if err := bucket.Create(ctx, cfg.ProjectID, &storage.BucketAttrs{
			Location: "US-CENTRAL1",
		}); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	} else if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	return &GCSStorageProvider{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
	}, nil
}

func (g *GCSStorageProvider) Store(ctx context.Context, r io.Reader, suggestedName string) (*Object, error) {
	handle, err := NewHandle(suggestedName)
	if err != nil {
		return nil, err
	}

	// Canceling the writer context aborts the upload and discards the object
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.bucket.Object(handle).NewWriter(writeCtx)
	written, err := io.Copy(writer, newContextReader(ctx, r))
	if err != nil {
		cancel()
		_ = writer.Close()
		return nil, fmt.Errorf("failed to copy file to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	log.Debug().
		Str("bucket", g.bucketName).
		Str("handle", handle).
		Int64("size", written).
		Msg("blob stored")

	return &Object{Handle: handle, Size: written}, nil
}

func (g *GCSStorageProvider) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	reader, err := g.bucket.Object(handle).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	return reader, nil
}

func (g *GCSStorageProvider) Exists(ctx context.Context, handle string) (bool, error) {
	_, err := g.bucket.Object(handle).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("error checking object existence: %w", err)
}

func (g *GCSStorageProvider) Delete(ctx context.Context, handle string) error {
	if err := g.bucket.Object(handle).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (g *GCSStorageProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	it := g.bucket.Objects(ctx, &storage.Query{
		Prefix: prefix,
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating objects: %w", err)
		}
		objects = append(objects, ObjectInfo{
			Handle:       attrs.Name,
			Size:         attrs.Size,
			ModifiedTime: attrs.Updated,
		})
	}

	log.Debug().
		Str("prefix", prefix).
		Int("count", len(objects)).
		Msg("objects listed")

	return objects, nil
}

func (g *GCSStorageProvider) Close() error {
	return g.client.Close()
}
