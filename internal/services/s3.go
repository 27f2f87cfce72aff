package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"portal/internal/config"
	"portal/internal/models"
	"portal/internal/utils/logger"
)

const defaultSignedURLTTL = time.Hour

// Ensure S3Service implements FileURLGenerator
var _ models.FileURLGenerator = (*S3Service)(nil)
var _ ObjectStore = (*S3Service)(nil)

// S3Service keeps company assets in an S3 compatible bucket (AWS, R2, MinIO).
type S3Service struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucketName string
	acl        types.ObjectCannedACL
	logger     *logger.Logger
}

func NewS3Service(ctx context.Context, provider string, cfg config.S3Config) (*S3Service, error) {
	log := logger.New("s3_service")

	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, log.Error("S3 credentials are empty ❌", fmt.Errorf("accessKey or secretKey is empty"))
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // Session token (not needed for basic auth)
		)),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, log.Error("Unable to load SDK config ❌", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.%s", cfg.Region, cfg.Endpoint))
			o.UsePathStyle = true
		}
	})

	// Verify credentials by making a test API call
	_, err = client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(cfg.BucketName),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, log.Error("Failed to verify S3 credentials ❌", err)
	}

	// R2 rejects private ACLs on public buckets; everything else stays private
	// and is read through presigned URLs.
	acl := types.ObjectCannedACLPrivate
	if provider == "r2" {
		acl = types.ObjectCannedACLPublicRead
	}

	log.Success("S3 service initialized successfully ✅")

	return &S3Service{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucketName: cfg.BucketName,
		acl:        acl,
		logger:     log,
	}, nil
}

// UploadFile stores content under key and returns the key.
func (s *S3Service) UploadFile(ctx context.Context, content []byte, key, contentType string) (string, error) {
	s.logger.Info("📤 Starting file upload: %s", key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ACL:         s.acl,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", s.logger.Error("Failed to upload file to storage ❌", err)
	}

	s.logger.Success("✅ File uploaded successfully: %s", key)
	return key, nil
}

// GetSignedURL implements FileURLGenerator interface
func (s *S3Service) GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error) {
	presignedURL, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		return "", s.logger.Error("Failed to generate pre-signed URL ❌", err)
	}

	s.logger.Debug("Generated pre-signed URL for %s", path)
	return presignedURL.URL, nil
}
