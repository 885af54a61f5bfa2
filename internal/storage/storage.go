package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"timetabledocs/internal/config"
)

// Package storage contains object storage abstractions for the uploaded reference PDFs.
// Implementations must avoid using local disk and rely on streaming I/O only.

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client interface.
// Methods use context and streaming readers/writers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PublicURL returns the stable, publicly resolvable location of an object.
	PublicURL(key string) string
}

// New builds the Storage implementation selected by cfg.Driver.
func New(cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "minio":
		return NewMinIO(cfg)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// PublicPrefix is the key folder holding every reference PDF. With PublicRead it is the only
// part of the bucket readable without credentials.
const PublicPrefix = "timetable_pdfs"

func validate(cfg config.StorageConfig) error {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return fmt.Errorf("storage credentials are required")
	}
	if cfg.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if !cfg.PublicRead && cfg.PublicBaseURL == "" {
		return fmt.Errorf("STORAGE_PUBLIC_BASE_URL is required when STORAGE_PUBLIC_READ is off")
	}
	return nil
}

type policyStatement struct {
	Sid       string              `json:"Sid"`
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// publicReadPolicy allows anonymous s3:GetObject on bucket/prefix/* and nothing else.
func publicReadPolicy(bucket, prefix string) string {
	b, _ := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadReferencePDFs",
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/" + strings.Trim(prefix, "/") + "/*"},
		}},
	})
	return string(b)
}

// objectURL joins a base location, the bucket (path-style, optional) and an object key.
// Key segments are escaped individually so folder separators survive.
func objectURL(base, bucket, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return joinBucket(base, bucket) + "/" + strings.Join(segs, "/")
}

func joinBucket(base, bucket string) string {
	out := strings.TrimRight(base, "/")
	if bucket == "" {
		return out
	}
	return out + "/" + url.PathEscape(bucket)
}

func endpointBase(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
