package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for container operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrContainerNotFound indicates the container is not configured or
	// does not exist.
	ErrContainerNotFound = errors.New("container not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrThrottled indicates the request was rate limited by the store.
	ErrThrottled = errors.New("request throttled")

	// ErrUnavailable indicates the storage service is unavailable.
	ErrUnavailable = errors.New("storage unavailable")
)

// StorageError wraps store-specific errors with context.
type StorageError struct {
	// Op is the operation that failed (e.g., "Download", "Upload").
	Op string

	// Container is the container name.
	Container string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s/%s: %v", e.Op, e.Container, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Container, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsContainerNotFound returns true if the error indicates an unknown container.
func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsThrottled returns true if the error indicates rate limiting.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
