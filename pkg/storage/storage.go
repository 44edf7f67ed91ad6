// Package storage defines abstractions for the object containers the
// pipeline reads from and writes to.
//
// Containers implement a minimal surface area: existence check, download
// to a local path, and overwriting upload. Authentication uses SDK
// default credential chains - containers should not implement custom
// auth logic.
package storage

import (
	"context"
)

// Container abstracts one named object container (an S3 bucket or a
// local directory).
//
// Implementations must be safe for concurrent use: the same container
// client is shared across requests after startup.
type Container interface {
	// Name returns the configured container name.
	Name() string

	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Download copies the object to localPath, creating or truncating it.
	// Returns ErrNotFound if the object does not exist.
	Download(ctx context.Context, key, localPath string) error

	// Upload stores the local file under key, overwriting any existing
	// object, and returns the remote object URL.
	Upload(ctx context.Context, key, localPath string) (string, error)

	// URL returns the remote reference for key without any I/O.
	URL(key string) string
}
