package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the credentials and endpoint for the attachment bucket.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService is the boundary to attachment storage. The server never
// proxies file bytes; it hands clients time-limited presigned URLs and the
// upload or download happens directly against the bucket.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading an attachment of
	// the given MIME type and size under the given room-scoped key.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for fetching the attachment
	// stored under key.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// NewStorageService is the factory function for StorageService.
// Only S3-compatible buckets are supported.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
