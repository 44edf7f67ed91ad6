// Package media wraps the local transcoder and the segment sizing math.
package media

import (
	"fmt"
	"math"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// DefaultSegmentSizeMB is the target size of each video segment.
const DefaultSegmentSizeMB = 480

// SplitSeconds computes the per-segment duration so that segments
// approximate targetMB each, assuming constant bitrate:
//
//	ceil(totalSeconds * targetMB / fileSizeMB)
//
// The result is always at least 1 second. A non-positive size or
// duration is a caller bug and fails with ErrInvalidInput.
func SplitSeconds(totalSeconds, fileSizeMB float64, targetMB int) (int, error) {
	if targetMB <= 0 {
		targetMB = DefaultSegmentSizeMB
	}
	if fileSizeMB <= 0 {
		return 0, fmt.Errorf("%w: file size must be positive, got %vMB", apperrors.ErrInvalidInput, fileSizeMB)
	}
	if totalSeconds <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive, got %vs", apperrors.ErrInvalidInput, totalSeconds)
	}

	seconds := int(math.Ceil(totalSeconds * float64(targetMB) / fileSizeMB))
	if seconds < 1 {
		seconds = 1
	}
	return seconds, nil
}
