package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
)

// FFmpeg implements Transcoder by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

var _ Transcoder = (*FFmpeg)(nil)

// NewFFmpeg returns a transcoder using the given binaries.
// Empty paths fall back to "ffmpeg" and "ffprobe" on PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// probeFormat is the subset of ffprobe's JSON output we decode.
type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the container duration of the file in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v: %s",
			apperrors.ErrProbeFailed, err, strings.TrimSpace(string(output)))
	}

	var result probeFormat
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("%w: parse ffprobe output: %v", apperrors.ErrProbeFailed, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("%w: no duration in ffprobe output", apperrors.ErrProbeFailed)
	}
	return seconds, nil
}

// Segment splits the file into pieces of roughly the given duration.
//
// Stream copy keeps segmentation fast: no re-encode, cuts land on
// keyframes so actual segment durations are approximate.
func (f *FFmpeg) Segment(ctx context.Context, path, outDir string, seconds int) ([]string, error) {
	pattern := filepath.Join(outDir, "output%03d.mp4")
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", path,
		"-c", "copy",
		"-map", "0",
		"-f", "segment",
		"-segment_time", strconv.Itoa(seconds),
		"-reset_timestamps", "1",
		pattern)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s",
			apperrors.ErrSegmentationFailed, err, strings.TrimSpace(string(output)))
	}

	paths, err := filepath.Glob(filepath.Join(outDir, "output*.mp4"))
	if err != nil {
		return nil, fmt.Errorf("%w: list segments: %v", apperrors.ErrSegmentationFailed, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no segments", apperrors.ErrSegmentationFailed)
	}
	// The %03d numbering makes lexical order playback order.
	sort.Strings(paths)
	return paths, nil
}

// ExtractWAV writes the file's audio track to outPath as PCM 16-bit,
// 44100 Hz, stereo WAV.
func (f *FFmpeg) ExtractWAV(ctx context.Context, path, outPath string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "2",
		outPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg wav extract: %v: %s",
			apperrors.ErrSegmentationFailed, err, strings.TrimSpace(string(output)))
	}
	return nil
}
