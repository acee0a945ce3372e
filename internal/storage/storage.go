// Package storage provides archive backends for delivered downloads.
// Archiving is optional: when an R2/S3 bucket is configured, a copy of
// each delivered file is kept there before the local temp file is
// removed.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archive stores copies of delivered media files.
type Archive interface {
	// Upload stores the file and returns the object key it was stored under.
	Upload(ctx context.Context, filePath string) (string, error)
	// DeleteOlderThan removes archived objects older than age, returning
	// how many were deleted.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// R2 implements Archive using Cloudflare R2 (S3-compatible).
type R2 struct {
	client *s3.Client
	bucket string
}

// NewR2 creates a new R2 archive client.
func NewR2(ctx context.Context, accountID, accessKeyID, secretAccessKey, bucket string) (*R2, error) {
	if accountID == "" || accessKeyID == "" || secretAccessKey == "" || bucket == "" {
		return nil, fmt.Errorf("incomplete R2 configuration")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2{client: client, bucket: bucket}, nil
}

// Upload stores a file in the archive bucket under a unique key.
func (r *R2) Upload(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	key := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filePath))

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(detectContentType(filePath)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return key, nil
}

// DeleteOlderThan removes archived objects older than age.
func (r *R2) DeleteOlderThan(ctx context.Context, age time.Duration) (int, error) {
	threshold := time.Now().Add(-age)
	deleted := 0

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list archive objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(threshold) {
				continue
			}
			_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(r.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return deleted, fmt.Errorf("failed to delete %s: %w", aws.ToString(obj.Key), err)
			}
			deleted++
		}
	}

	return deleted, nil
}

// Disabled is the no-op Archive used when no bucket is configured.
type Disabled struct{}

// NewDisabled creates a no-op archive.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Upload does nothing and returns an empty key.
func (*Disabled) Upload(ctx context.Context, filePath string) (string, error) {
	return "", nil
}

// DeleteOlderThan does nothing.
func (*Disabled) DeleteOlderThan(ctx context.Context, age time.Duration) (int, error) {
	return 0, nil
}

// detectContentType returns the MIME type based on file extension.
func detectContentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
