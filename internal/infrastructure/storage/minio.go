package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

// MinIOClient wraps MinIO operations
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string // Public URL for generating accessible URLs (e.g., https://minio.example.com)
}

var _ providers.AudioURLSigner = (*MinIOClient)(nil)

// NewMinIOClient creates a new MinIO client and makes sure the audio bucket exists
func NewMinIOClient(ctx context.Context, cfg *config.StorageConfig) (*MinIOClient, error) {
	client, err := newMinIOClient(cfg)
	if err != nil {
		return nil, err
	}

	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

func newMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	// Region is set so presigning never needs a bucket-location round trip
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// ensureBucket creates the bucket when it does not exist yet
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PresignedAudioURL returns a time-limited GET URL for an audio object.
// When a public URL is configured the internal endpoint is swapped for it,
// which is needed when MinIO sits behind a reverse proxy.
func (m *MinIOClient) PresignedAudioURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	objectKey = strings.TrimPrefix(objectKey, "/")
	if objectKey == "" {
		return "", fmt.Errorf("object key is required")
	}

	signed, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	if m.publicURL == "" {
		return signed.String(), nil
	}

	// Format: scheme://endpoint/bucket/object?query
	return m.publicURL + signed.RequestURI(), nil
}

// Ping checks that the bucket is reachable
func (m *MinIOClient) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}
