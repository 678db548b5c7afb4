package archive

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/labdb"
)

// S3Uploader uploads archive files with the S3 transfer manager.
type S3Uploader struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Uploader builds a client from the default AWS chain. Static
// credentials from AWS_ACCESS_KEY_ID win when set, and a custom endpoint
// switches to path-style addressing.
func NewS3Uploader(ctx context.Context, cfg labdb.ArchiveConfig) (*S3Uploader, error) {
	if cfg.S3Bucket == "" {
		return nil, labdb.NewValidationError("archive.s3Bucket", "is required")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, os.Getenv("AWS_SECRET_ACCESS_KEY"), os.Getenv("AWS_SESSION_TOKEN"))))
	}
	if cfg.S3Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.S3Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3Endpoint != ""
	})
	return &S3Uploader{client: client, uploader: manager.NewUploader(client), bucket: cfg.S3Bucket}, nil
}

// EnsureBucket creates the bucket when HeadBucket cannot see it.
func (u *S3Uploader) EnsureBucket(ctx context.Context) error {
	if _, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)}); err == nil {
		return nil
	}
	_, err := u.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(u.bucket)})
	if err == nil || isBucketExists(err) {
		return nil
	}
	return classifyS3Error("create bucket "+u.bucket, err)
}

func (u *S3Uploader) Upload(ctx context.Context, key, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open src: %w", err)
	}
	defer in.Close()

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        in,
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return classifyS3Error("s3 upload "+key, err)
	}
	return nil
}

func isBucketExists(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
}

// classifyS3Error maps S3 API error codes onto LabErrors.
func classifyS3Error(op string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return labdb.NewStorageError(op, err)
	}
	switch apiErr.ErrorCode() {
	case "NoSuchBucket", "NotFound":
		return labdb.NewNotFoundError("bucket", op).WithCause(err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return labdb.NewUnauthorizedError("S3_ACCESS_DENIED", fmt.Sprintf("%s: %s", op, apiErr.ErrorMessage())).WithCause(err)
	default:
		return labdb.NewStorageError(fmt.Sprintf("%s: %s", op, apiErr.ErrorCode()), err)
	}
}
