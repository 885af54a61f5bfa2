package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"timetabledocs/internal/config"
)

const bucketCheckTimeout = 10 * time.Second

// minioBuckets is the bucket administration subset of *minio.Client used at startup.
type minioBuckets interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
}

// minioStore talks to MinIO or any S3-compatible endpoint through minio-go.
// Safe for concurrent use.
type minioStore struct {
	cli    *minio.Client
	bucket string
	base   string
}

// NewMinIO connects to cfg.Endpoint, makes sure the bucket exists and, with PublicRead,
// opens the PDF prefix to anonymous reads.
func NewMinIO(cfg config.StorageConfig) (Storage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	// Without a CDN base, objects resolve path-style under the endpoint.
	base := cfg.PublicBaseURL
	if base == "" {
		base = joinBucket(endpointBase(cfg.Endpoint, cfg.UseSSL), cfg.Bucket)
	}

	ctx, cancel := context.WithTimeout(context.Background(), bucketCheckTimeout)
	defer cancel()
	if err := prepareMinioBucket(ctx, cli, cfg); err != nil {
		return nil, err
	}
	return &minioStore{cli: cli, bucket: cfg.Bucket, base: base}, nil
}

func prepareMinioBucket(ctx context.Context, b minioBuckets, cfg config.StorageConfig) error {
	ok, err := b.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !ok {
		if err := b.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	if !cfg.PublicRead {
		return nil
	}
	if err := b.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket, PublicPrefix)); err != nil {
		return fmt.Errorf("set public read policy on %q: %w", cfg.Bucket, err)
	}
	return nil
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	up, err := s.cli.PutObject(ctx, s.bucket, key, r, opt.Size, minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put %s: %w", key, err)
	}
	// UploadInfo carries no modification time; the upload instant is close enough.
	return ObjectInfo{
		Key:          up.Key,
		Size:         up.Size,
		ETag:         up.ETag,
		ContentType:  opt.ContentType,
		LastModified: time.Now().UTC(),
		Metadata:     opt.Metadata,
	}, nil
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	if err := s.cli.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *minioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	signed, err := s.cli.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return signed.String(), nil
}

func (s *minioStore) PublicURL(key string) string {
	return objectURL(s.base, "", key)
}
