package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/billy784512/azure-blob-video-translator/pkg/storage"
)

// Container implements storage.Container backed by one S3 bucket.
type Container struct {
	client   *awss3.Client
	bucket   string
	endpoint string
	region   string
}

var _ storage.Container = (*Container)(nil)

// ClientSet builds container clients that share one S3 connection.
type ClientSet struct {
	client *awss3.Client
	cfg    Config
}

// NewClientSet loads AWS configuration once and returns a factory for
// per-bucket containers.
func NewClientSet(ctx context.Context, cfg Config) (*ClientSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*awss3.Options){
		func(o *awss3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &ClientSet{
		client: awss3.NewFromConfig(awsCfg, s3Opts...),
		cfg:    cfg,
	}, nil
}

// Container returns a container client for the named bucket.
//
// The bucket is created if it does not exist, matching the startup
// provisioning contract: every configured container is usable once the
// registry is built.
func (s *ClientSet) Container(ctx context.Context, bucket string) (*Container, error) {
	c := &Container{
		client:   s.client,
		bucket:   bucket,
		endpoint: strings.TrimRight(s.cfg.Endpoint, "/"),
		region:   s.cfg.Region,
	}

	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	// Only apply explicit region if set; let the SDK resolve from
	// env/profile first.
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	if awsCfg.Region == "" && cfg.Endpoint == "" {
		awsCfg.Region = DefaultAWSRegion
	}

	return awsCfg, nil
}

// Name returns the bucket name.
func (c *Container) Name() string {
	return c.bucket
}

// Exists reports whether the object is present.
func (c *Container) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		wrapped := c.wrapError("Exists", key, err)
		if storage.IsNotFound(wrapped) {
			return false, nil
		}
		return false, wrapped
	}
	return true, nil
}

// Download copies the object to localPath, creating or truncating it.
func (c *Container) Download(ctx context.Context, key, localPath string) error {
	out, err := c.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return c.wrapError("Download", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return &storage.StorageError{Op: "Download", Container: c.bucket, Key: key, Err: err}
	}

	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return &storage.StorageError{Op: "Download", Container: c.bucket, Key: key, Err: err}
	}
	if err := f.Close(); err != nil {
		return &storage.StorageError{Op: "Download", Container: c.bucket, Key: key, Err: err}
	}
	return nil
}

// Upload stores the local file under key, overwriting any existing
// object, and returns the remote object URL.
func (c *Container) Upload(ctx context.Context, key, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", &storage.StorageError{Op: "Upload", Container: c.bucket, Key: key, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", &storage.StorageError{Op: "Upload", Container: c.bucket, Key: key, Err: err}
	}

	size := info.Size()
	_, err = c.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: &size,
	})
	if err != nil {
		return "", c.wrapError("Upload", key, err)
	}
	return c.URL(key), nil
}

// URL returns the remote reference for key without any I/O.
func (c *Container) URL(key string) string {
	if c.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key)
	}
	region := c.region
	if region == "" {
		region = DefaultAWSRegion
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, region, key)
}

// ensureBucket creates the bucket if it does not already exist.
func (c *Container) ensureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	wrapped := c.wrapError("EnsureBucket", "", err)
	if !storage.IsNotFound(wrapped) && !storage.IsContainerNotFound(wrapped) {
		return wrapped
	}

	_, err = c.client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		// Concurrent startup may have created it already.
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return c.wrapError("EnsureBucket", "", err)
	}
	return nil
}

// wrapError converts S3 errors to storage errors with appropriate sentinels.
func (c *Container) wrapError(op, key string, err error) error {
	wrapped := &storage.StorageError{
		Op:        op,
		Container: c.bucket,
		Key:       key,
		Err:       err,
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = storage.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = storage.ErrContainerNotFound
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = storage.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = storage.ErrContainerNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = storage.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = storage.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = storage.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = storage.ErrUnavailable
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound") || strings.Contains(msg, "404"):
		wrapped.Err = storage.ErrNotFound
	case strings.Contains(msg, "NoSuchBucket"):
		wrapped.Err = storage.ErrContainerNotFound
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "Forbidden") || strings.Contains(msg, "403"):
		wrapped.Err = storage.ErrAccessDenied
	case strings.Contains(msg, "InvalidAccessKeyId") || strings.Contains(msg, "SignatureDoesNotMatch"):
		wrapped.Err = storage.ErrInvalidCredentials
	case strings.Contains(msg, "SlowDown") || strings.Contains(msg, "Throttling") || strings.Contains(msg, "429"):
		wrapped.Err = storage.ErrThrottled
	case strings.Contains(msg, "ServiceUnavailable") || strings.Contains(msg, "503"):
		wrapped.Err = storage.ErrUnavailable
	}

	return wrapped
}
