package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"timetabledocs/internal/config"
)

type mockMinioBuckets struct{ mock.Mock }

func (m *mockMinioBuckets) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *mockMinioBuckets) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *mockMinioBuckets) SetBucketPolicy(ctx context.Context, bucket, policy string) error {
	return m.Called(ctx, bucket, policy).Error(0)
}

type mockS3Buckets struct{ mock.Mock }

func (m *mockS3Buckets) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	return &s3.HeadBucketOutput{}, args.Error(0)
}

func (m *mockS3Buckets) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	return &s3.CreateBucketOutput{}, args.Error(0)
}

func (m *mockS3Buckets) PutPublicAccessBlock(ctx context.Context, in *s3.PutPublicAccessBlockInput, _ ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutPublicAccessBlockOutput{}, args.Error(0)
}

func (m *mockS3Buckets) PutBucketPolicy(ctx context.Context, in *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutBucketPolicyOutput{}, args.Error(0)
}

func storageConfig() config.StorageConfig {
	return config.StorageConfig{
		Endpoint:   "minio:9000",
		AccessKey:  "a",
		SecretKey:  "b",
		Bucket:     "timetable-input-bucket",
		Region:     "us-east-1",
		PublicRead: true,
	}
}

func TestPublicReadPolicy(t *testing.T) {
	var p bucketPolicy
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("pdfs", "timetable_pdfs/")), &p))

	require.Len(t, p.Statement, 1)
	st := p.Statement[0]
	assert.Equal(t, "Allow", st.Effect)
	assert.Equal(t, []string{"*"}, st.Principal["AWS"])
	assert.Equal(t, []string{"s3:GetObject"}, st.Action)
	assert.Equal(t, []string{"arn:aws:s3:::pdfs/timetable_pdfs/*"}, st.Resource)
}

func TestPrepareMinioBucket(t *testing.T) {
	ctx := context.Background()
	policy := publicReadPolicy("timetable-input-bucket", PublicPrefix)

	t.Run("creates missing bucket and opens the pdf prefix", func(t *testing.T) {
		b := &mockMinioBuckets{}
		b.On("BucketExists", ctx, "timetable-input-bucket").Return(false, nil).Once()
		b.On("MakeBucket", ctx, "timetable-input-bucket", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
		b.On("SetBucketPolicy", ctx, "timetable-input-bucket", policy).Return(nil).Once()

		require.NoError(t, prepareMinioBucket(ctx, b, storageConfig()))
		b.AssertExpectations(t)
	})

	t.Run("existing bucket still gets the policy", func(t *testing.T) {
		b := &mockMinioBuckets{}
		b.On("BucketExists", ctx, "timetable-input-bucket").Return(true, nil).Once()
		b.On("SetBucketPolicy", ctx, "timetable-input-bucket", policy).Return(nil).Once()

		require.NoError(t, prepareMinioBucket(ctx, b, storageConfig()))
		b.AssertExpectations(t)
		b.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("policy failure refuses to start", func(t *testing.T) {
		b := &mockMinioBuckets{}
		b.On("BucketExists", ctx, "timetable-input-bucket").Return(true, nil).Once()
		b.On("SetBucketPolicy", ctx, "timetable-input-bucket", policy).Return(errors.New("access denied")).Once()

		err := prepareMinioBucket(ctx, b, storageConfig())
		assert.ErrorContains(t, err, "set public read policy")
	})

	t.Run("public read off leaves the policy alone", func(t *testing.T) {
		cfg := storageConfig()
		cfg.PublicRead = false
		b := &mockMinioBuckets{}
		b.On("BucketExists", ctx, "timetable-input-bucket").Return(true, nil).Once()

		require.NoError(t, prepareMinioBucket(ctx, b, cfg))
		b.AssertNotCalled(t, "SetBucketPolicy", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPrepareS3Bucket(t *testing.T) {
	ctx := context.Background()
	policyInput := func(bucket string) *s3.PutBucketPolicyInput {
		return &s3.PutBucketPolicyInput{
			Bucket: aws.String(bucket),
			Policy: aws.String(publicReadPolicy(bucket, PublicPrefix)),
		}
	}

	t.Run("aws outside us-east-1 sets location and lifts the policy block", func(t *testing.T) {
		cfg := storageConfig()
		cfg.Endpoint = ""
		cfg.Region = "eu-west-1"

		api := &mockS3Buckets{}
		api.On("HeadBucket", ctx, mock.Anything).Return(errors.New("not found")).Once()
		api.On("CreateBucket", ctx, mock.MatchedBy(func(in *s3.CreateBucketInput) bool {
			return in.CreateBucketConfiguration != nil &&
				in.CreateBucketConfiguration.LocationConstraint == types.BucketLocationConstraint("eu-west-1")
		})).Return(nil).Once()
		api.On("PutPublicAccessBlock", ctx, mock.MatchedBy(func(in *s3.PutPublicAccessBlockInput) bool {
			c := in.PublicAccessBlockConfiguration
			return !aws.ToBool(c.BlockPublicPolicy) && !aws.ToBool(c.RestrictPublicBuckets)
		})).Return(nil).Once()
		api.On("PutBucketPolicy", ctx, policyInput(cfg.Bucket)).Return(nil).Once()

		require.NoError(t, prepareS3Bucket(ctx, api, cfg))
		api.AssertExpectations(t)
	})

	t.Run("us-east-1 sends no location constraint", func(t *testing.T) {
		cfg := storageConfig()
		cfg.Endpoint = ""

		api := &mockS3Buckets{}
		api.On("HeadBucket", ctx, mock.Anything).Return(errors.New("not found")).Once()
		api.On("CreateBucket", ctx, mock.MatchedBy(func(in *s3.CreateBucketInput) bool {
			return in.CreateBucketConfiguration == nil
		})).Return(nil).Once()
		api.On("PutPublicAccessBlock", ctx, mock.Anything).Return(nil).Once()
		api.On("PutBucketPolicy", ctx, policyInput(cfg.Bucket)).Return(nil).Once()

		require.NoError(t, prepareS3Bucket(ctx, api, cfg))
		api.AssertExpectations(t)
	})

	t.Run("s3-compatible endpoint skips the account block", func(t *testing.T) {
		cfg := storageConfig()

		api := &mockS3Buckets{}
		api.On("HeadBucket", ctx, mock.Anything).Return(nil).Once()
		api.On("PutBucketPolicy", ctx, policyInput(cfg.Bucket)).Return(nil).Once()

		require.NoError(t, prepareS3Bucket(ctx, api, cfg))
		api.AssertExpectations(t)
		api.AssertNotCalled(t, "PutPublicAccessBlock", mock.Anything, mock.Anything)
	})
}

func TestValidate_PublicReadOffNeedsBase(t *testing.T) {
	cfg := storageConfig()
	cfg.PublicRead = false
	assert.ErrorContains(t, validate(cfg), "STORAGE_PUBLIC_BASE_URL")

	cfg.PublicBaseURL = "https://cdn.example.edu"
	assert.NoError(t, validate(cfg))
}
