package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by New when no MinIO endpoint or credentials are set
var ErrNotConfigured = errors.New("document archive not configured")

// Archive stores the original invoice documents in a MinIO bucket
type Archive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
	log    zerolog.Logger
}

// New connects to MinIO and makes sure the bucket exists, creating it if needed
func New(ctx context.Context, cfg config.StorageConfig) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	a := &Archive{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
		log:    logger.WithComponent("storage"),
	}
	a.log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("document archive ready")
	return a, nil
}

// ObjectName builds the archive path of an upload: YYYY/MM/{uuid}{ext}.
// The original file name only contributes its extension.
func ObjectName(now time.Time, fileName, contentType string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = GetFileExtension(contentType)
	}
	return fmt.Sprintf("%d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)
}

// Put uploads a document and returns its path ("bucket/object") for storage in the DB
func (a *Archive) Put(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentTypeFor(fileName)
	}
	objectName := ObjectName(a.now(), fileName, contentType)

	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-name": fileName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	a.log.Debug().Str("object", objectName).Int("bytes", len(data)).Msg("document archived")
	return fmt.Sprintf("%s/%s", a.bucket, objectName), nil
}

// PresignedURL generates a URL for viewing an archived document
func (a *Archive) PresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	url, err := a.client.PresignedGetObject(ctx, a.bucket, a.objectName(objectPath), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// Remove deletes an archived document
func (a *Archive) Remove(ctx context.Context, objectPath string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, a.objectName(objectPath), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (a *Archive) Ping(ctx context.Context) error {
	_, err := a.client.BucketExists(ctx, a.bucket)
	return err
}

// objectName strips the bucket prefix stored in the DB
func (a *Archive) objectName(objectPath string) string {
	return strings.TrimPrefix(objectPath, a.bucket+"/")
}

// GetFileExtension extracts file extension from content type
func GetFileExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/tiff":
		return ".tiff"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}

// ContentTypeFor guesses the content type from a file name
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
