package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// Archive stores rendered chart artifacts
type Archive interface {
	Store(ctx context.Context, key string, content []byte, contentType string) error
	HealthCheck(ctx context.Context) error
}

// Config holds object storage settings. Endpoint is set for R2 or
// MinIO; empty means plain AWS S3.
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// S3Archive writes chart artifacts to an S3-compatible bucket
type S3Archive struct {
	client *s3.Client
	bucket string
	logger *observability.Logger
}

// NewS3Archive creates the archive client. Static credentials are used
// when provided; otherwise the default credential chain applies.
func NewS3Archive(ctx context.Context, cfg Config, logger *observability.Logger) (*S3Archive, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Store uploads one artifact with its checksum as object metadata
func (a *S3Archive) Store(ctx context.Context, key string, content []byte, contentType string) error {
	hash := sha256.Sum256(content)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"checksum-sha256": hex.EncodeToString(hash[:]),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive chart artifact: %w", err)
	}
	return nil
}

// HealthCheck verifies bucket access
func (a *S3Archive) HealthCheck(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("archive health check failed: %w", err)
	}
	return nil
}

// ArtifactKey builds the content-addressed object key for a rendered
// chart: charts/<fingerprint prefix>/<fingerprint>.<format>.
func ArtifactKey(fingerprint, format string) string {
	format = strings.ToLower(format)
	return fmt.Sprintf("charts/%s/%s.%s", fingerprint[:2], fingerprint, format)
}

// NoopArchive discards artifacts; used when archiving is not configured
type NoopArchive struct{}

func (NoopArchive) Store(ctx context.Context, key string, content []byte, contentType string) error {
	return nil
}

func (NoopArchive) HealthCheck(ctx context.Context) error { return nil }
