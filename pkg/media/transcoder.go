package media

import "context"

// Transcoder abstracts the local media tool invocations the pipeline needs.
//
// Implementations map non-zero exit codes onto ErrProbeFailed and
// ErrSegmentationFailed so callers never parse tool output.
type Transcoder interface {
	// ProbeDuration returns the container duration of the file in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// Segment splits the file into pieces of roughly the given duration,
	// writing them into outDir. Returns the output paths in playback order.
	Segment(ctx context.Context, path, outDir string, seconds int) ([]string, error)

	// ExtractWAV writes the file's audio track to outPath as PCM 16-bit,
	// 44100 Hz, stereo WAV.
	ExtractWAV(ctx context.Context, path, outPath string) error
}
