package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

// S3StorageProvider works against AWS S3 and compatible stores such as
// MinIO or R2 when an endpoint is configured.
type S3StorageProvider struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   *string
}

func NewS3Storage(ctx context.Context, cfg Config) (*S3StorageProvider, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	bucket := aws.String(cfg.S3Bucket)
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return nil, fmt.Errorf("bucket '%s' does not exist", cfg.S3Bucket)
		}
		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3StorageProvider{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		}),
		bucket: bucket,
	}, nil
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (s *S3StorageProvider) Store(ctx context.Context, r io.Reader, suggestedName string) (*Object, error) {
	handle, err := NewHandle(suggestedName)
	if err != nil {
		return nil, err
	}

	// The multipart uploader aborts incomplete uploads on error
	body := &countingReader{r: newContextReader(ctx, r)}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(handle),
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3, %w", err)
	}

	log.Debug().
		Str("bucket", *s.bucket).
		Str("handle", handle).
		Int64("size", body.n.Load()).
		Msg("blob stored")

	return &Object{Handle: handle, Size: body.n.Load()}, nil
}

func (s *S3StorageProvider) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(handle),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
		}
		return nil, fmt.Errorf("failed to get object, %w", err)
	}
	return out.Body, nil
}

func (s *S3StorageProvider) Exists(ctx context.Context, handle string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(handle),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking object existence: %w", err)
}

// Delete is idempotent: S3 reports success for missing keys.
func (s *S3StorageProvider) Delete(ctx context.Context, handle string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(handle),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete object, %w", err)
	}
	return nil
}

func (s *S3StorageProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: s.bucket,
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Handle:       aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ModifiedTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

func (s *S3StorageProvider) Close() error {
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
