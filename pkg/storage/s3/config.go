// Package s3 implements the storage container interface for AWS S3 and
// S3-compatible stores.
package s3

import "fmt"

// Config configures the shared S3 connection for all containers.
//
// Authentication priority (AWS SDK v2 default chain):
//  1. Explicit AccessKeyID/SecretAccessKey (if provided)
//  2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//  3. Shared credentials file (~/.aws/credentials)
//  4. Shared config file (~/.aws/config) with profile
//  5. EC2 instance metadata / ECS task role / EKS IRSA
//
// For S3-compatible stores (MinIO, Wasabi, DigitalOcean Spaces), set
// Endpoint and typically ForcePathStyle.
type Config struct {
	// Region is the AWS region.
	// For AWS S3: defaults to us-east-1 if not specified via config or environment.
	// For S3-compatible (when Endpoint is set): no default applied.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Leave empty for AWS S3.
	Endpoint string

	// Profile is the AWS profile name to use from shared config.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must also be set.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key. Required if AccessKeyID is set.
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (bucket in path, not subdomain).
	// Required for most S3-compatible stores.
	ForcePathStyle bool
}

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return fmt.Errorf("s3 config: both access key ID and secret access key must be provided together")
	}
	return nil
}
