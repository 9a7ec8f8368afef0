package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"chatflow/internal/pkg/logx"
)

// s3Client implements the StorageService interface, handling interactions with S3-compatible storage.
type s3Client struct {
	cfg      ServiceConfig
	s3Client *s3.Client
	uploader *manager.Uploader
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(cfg ServiceConfig) (*s3Client, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:      cfg,
		s3Client: client,
		uploader: manager.NewUploader(client),
	}, nil
}

// PresignUpload generates a presigned URL for uploading a file with the specified key, MIME type, and size.
func (c *s3Client) PresignUpload(
	ctx context.Context,
	key string,
	mimeType string,
	fileSize int64,
	duration time.Duration,
) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	presignInput := &s3.PutObjectInput{
		Bucket:        &c.cfg.S3BucketName,
		Key:           &key,
		ContentType:   &mimeType,
		ContentLength: &fileSize,
	}

	resp, err := presignClient.PresignPutObject(
		ctx,
		presignInput,
		s3.WithPresignExpires(duration),
	)
	if err != nil {
		logx.Error(err, "Failed to generate presigned upload URL", "key", key)
		return "", errors.New("failed to generate presigned upload URL")
	}

	return resp.URL, nil
}

// PresignDownload generates a presigned URL for downloading the specified file key.
func (c *s3Client) PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	presignInput := &s3.GetObjectInput{
		Bucket: &c.cfg.S3BucketName,
		Key:    &key,
	}

	resp, err := presignClient.PresignGetObject(ctx, presignInput, s3.WithPresignExpires(duration))
	if err != nil {
		logx.Error(err, "Failed to generate presigned download URL", "key", key)
		return "", errors.New("failed to generate presigned download URL")
	}

	return resp.URL, nil
}

