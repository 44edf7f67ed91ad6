// Package errors defines the application error taxonomy and the JSON
// envelope returned at the HTTP boundary.
//
// Adapters wrap their failures around these sentinels so handlers can map
// them to status codes with errors.Is instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline and adapter operations.
var (
	// ErrInvalidRequest indicates a malformed or incomplete request body.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates the referenced blob or container does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a caller bug such as a zero-size source file.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProbeFailed indicates the transcoder could not report media duration.
	ErrProbeFailed = errors.New("media probe failed")

	// ErrSegmentationFailed indicates the transcoder exited non-zero while splitting.
	ErrSegmentationFailed = errors.New("segmentation failed")

	// ErrExternalAPI indicates a non-success HTTP status from a vendor API.
	ErrExternalAPI = errors.New("external api error")

	// ErrOperationFailed indicates a polled operation reached a terminal
	// failure state.
	ErrOperationFailed = errors.New("operation failed")

	// ErrInternal covers anything without a more specific classification.
	ErrInternal = errors.New("internal error")
)

// PipelineError wraps stage failures with enough context to diagnose
// which blob and stage produced them.
type PipelineError struct {
	// Op is the stage that failed (e.g., "DownloadSource", "Segment").
	Op string

	// Blob is the source blob name, if applicable.
	Blob string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Blob != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Blob, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Wrap attaches stage and blob context to err. Returns nil for a nil err.
func Wrap(op, blob string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Op: op, Blob: blob, Err: err}
}

// APIError carries the status and body of a failed vendor API call.
// It unwraps to ErrExternalAPI.
type APIError struct {
	// Service names the vendor API ("transcription", "translation").
	Service string

	// Status is the HTTP status code returned.
	Status int

	// Body is the response body, preserved for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s api: status %d: %s", e.Service, e.Status, e.Body)
}

// Unwrap classifies every APIError as ErrExternalAPI.
func (e *APIError) Unwrap() error {
	return ErrExternalAPI
}

// IsInvalidRequest returns true if the error indicates a malformed request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNotFound returns true if the error indicates a missing blob or container.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsOperationFailed returns true if a polled operation terminally failed.
func IsOperationFailed(err error) bool {
	return errors.Is(err, ErrOperationFailed)
}

// IsExternalAPI returns true if a vendor API returned a non-success status.
func IsExternalAPI(err error) bool {
	return errors.Is(err, ErrExternalAPI)
}
