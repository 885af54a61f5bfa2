package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"timetabledocs/internal/config"
)

// s3Storage implements Storage on the AWS SDK v2 S3 client. With an Endpoint set it talks
// path-style to any S3-compatible service.
type s3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	public  string
}

// NewS3 creates an S3 client from static credentials and prepares the bucket.
func NewS3(cfg config.StorageConfig) (Storage, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointBase(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true
		}
	})

	public := cfg.PublicBaseURL
	switch {
	case public != "":
	case cfg.Endpoint != "":
		public = joinBucket(endpointBase(cfg.Endpoint, cfg.UseSSL), cfg.Bucket)
	default:
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	if err := prepareS3Bucket(ctx, client, cfg); err != nil {
		return nil, err
	}
	return &s3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		public:  public,
	}, nil
}

// s3Buckets is the bucket administration subset of *s3.Client used at startup.
type s3Buckets interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutPublicAccessBlock(ctx context.Context, in *s3.PutPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error)
	PutBucketPolicy(ctx context.Context, in *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
}

// prepareS3Bucket creates the bucket when missing and, with PublicRead, installs the anonymous
// read policy. On AWS itself the account-level block on public policies is lifted for this
// bucket first; S3-compatible endpoints (Endpoint set) have no such block.
func prepareS3Bucket(ctx context.Context, api s3Buckets, cfg config.StorageConfig) error {
	bucket := aws.String(cfg.Bucket)
	if _, err := api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: bucket}); err != nil {
		in := &s3.CreateBucketInput{Bucket: bucket}
		// us-east-1 is the default location and rejects an explicit constraint.
		if cfg.Region != "" && cfg.Region != "us-east-1" {
			in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(cfg.Region),
			}
		}
		if _, err := api.CreateBucket(ctx, in); err != nil {
			return fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	if !cfg.PublicRead {
		return nil
	}

	if cfg.Endpoint == "" {
		_, err := api.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
			Bucket: bucket,
			PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
				BlockPublicAcls:       aws.Bool(true),
				IgnorePublicAcls:      aws.Bool(true),
				BlockPublicPolicy:     aws.Bool(false),
				RestrictPublicBuckets: aws.Bool(false),
			},
		})
		if err != nil {
			return fmt.Errorf("allow public policy on %q: %w", cfg.Bucket, err)
		}
	}
	_, err := api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: bucket,
		Policy: aws.String(publicReadPolicy(cfg.Bucket, PublicPrefix)),
	})
	if err != nil {
		return fmt.Errorf("set public read policy on %q: %w", cfg.Bucket, err)
	}
	return nil
}

func (s *s3Storage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: opt.Metadata,
	}
	if opt.ContentType != "" {
		in.ContentType = aws.String(opt.ContentType)
	}
	if opt.Size >= 0 {
		in.ContentLength = aws.Int64(opt.Size)
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         opt.Size,
		ETag:         aws.ToString(out.ETag),
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *s3Storage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *s3Storage) PublicURL(key string) string {
	return objectURL(s.public, "", key)
}
