// Package pipeline sequences the video translation stages: storage,
// segmentation, transcription, subtitle conversion, and the long-running
// translation job API.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
	"github.com/billy784512/azure-blob-video-translator/internal/observability"
	"github.com/billy784512/azure-blob-video-translator/pkg/media"
	"github.com/billy784512/azure-blob-video-translator/pkg/storage"
	"github.com/billy784512/azure-blob-video-translator/pkg/subtitle"
	"github.com/billy784512/azure-blob-video-translator/pkg/transcribe"
	"github.com/billy784512/azure-blob-video-translator/pkg/translate"
)

// Transcriber converts audio into a structured transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, wav io.Reader, locale string) (*transcribe.Transcript, error)
}

// HTTPDoer fetches translated result media from vendor URLs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config wires the orchestrator to its container roles and tuning knobs.
type Config struct {
	SourceContainer        string
	TargetContainer        string
	TranscriptionContainer string
	ProcessingContainer    string

	// SegmentSizeMB is the target size of each video segment.
	// Zero uses media.DefaultSegmentSizeMB.
	SegmentSizeMB int

	// MaxParallel caps concurrent translation jobs during fan-out.
	MaxParallel int

	// SubmitRateLimit paces fan-out job submissions per second.
	// Zero means unlimited.
	SubmitRateLimit float64
}

// Orchestrator runs translation and splitting requests end to end.
//
// It owns every temporary local file it creates and removes them on all
// exit paths; remote intermediates (segments, subtitle tracks) are left
// in place under deterministic names so retries simply overwrite them.
type Orchestrator struct {
	containers  *storage.Registry
	transcoder  media.Transcoder
	transcriber Transcriber
	jobs        JobStarter
	httpClient  HTTPDoer
	cfg         Config
}

// New constructs an orchestrator. A nil httpClient uses http.DefaultClient.
func New(containers *storage.Registry, transcoder media.Transcoder, transcriber Transcriber, jobs JobStarter, httpClient HTTPDoer, cfg Config) *Orchestrator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.SegmentSizeMB <= 0 {
		cfg.SegmentSizeMB = media.DefaultSegmentSizeMB
	}
	return &Orchestrator{
		containers:  containers,
		transcoder:  transcoder,
		transcriber: transcriber,
		jobs:        jobs,
		httpClient:  httpClient,
		cfg:         cfg,
	}
}

// Result reports what a completed request produced.
type Result struct {
	Mode Mode

	// ResultURLs are the per-segment translated media URLs (simple mode).
	ResultURLs []string

	// Container names where output landed: the target container in full
	// mode, the processing container in simple and split runs.
	Container string

	// ObjectName is the uploaded result object (full mode).
	ObjectName string
}

// Run executes one translation request in the requested mode.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	src, err := o.containers.Get(o.cfg.SourceContainer)
	if err != nil {
		return nil, apperrors.Wrap("Start", req.BlobName, err)
	}

	exists, err := src.Exists(ctx, req.BlobName)
	if err != nil {
		return nil, apperrors.Wrap("CheckSource", req.BlobName, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: blob %q in container %q",
			apperrors.ErrNotFound, req.BlobName, o.cfg.SourceContainer)
	}

	switch req.Mode {
	case ModeSimple:
		return o.runSimple(ctx, req, src)
	case ModeFull:
		return o.runFull(ctx, req, src)
	default:
		return nil, fmt.Errorf("%w: mode %v", apperrors.ErrInvalidRequest, req.Mode)
	}
}

// runSimple splits the source and fans the segments out to parallel
// translation jobs. Results are reported as URLs, not persisted.
func (o *Orchestrator) runSimple(ctx context.Context, req Request, src storage.Container) (*Result, error) {
	observability.Logger.Info("processing in simple mode",
		zap.String("blob", req.BlobName))

	work, cleanup, err := newWorkDir()
	if err != nil {
		return nil, apperrors.Wrap("Start", req.BlobName, err)
	}
	defer cleanup()

	localPath := filepath.Join(work, "source"+filepath.Ext(req.BlobName))
	if err := src.Download(ctx, req.BlobName, localPath); err != nil {
		return nil, apperrors.Wrap("DownloadSource", req.BlobName, err)
	}

	segments, err := o.splitAndUpload(ctx, req.BlobName, localPath, work)
	if err != nil {
		return nil, err
	}

	urls, err := NewFanOut(o.jobs, o.cfg.MaxParallel, o.cfg.SubmitRateLimit).
		Translate(ctx, req.SourceLang, req.TargetLang, segments)
	if err != nil {
		return nil, apperrors.Wrap("FanOutTranslate", req.BlobName, err)
	}

	for _, url := range urls {
		observability.Logger.Info("translated segment ready",
			zap.String("blob", req.BlobName),
			zap.String("video_url", url))
	}

	return &Result{
		Mode:       ModeSimple,
		ResultURLs: urls,
		Container:  o.cfg.ProcessingContainer,
	}, nil
}

// runFull transcribes the source, uploads a subtitle track, runs a
// single whole-video translation, and persists the result.
func (o *Orchestrator) runFull(ctx context.Context, req Request, src storage.Container) (*Result, error) {
	observability.Logger.Info("processing in full mode",
		zap.String("blob", req.BlobName))

	work, cleanup, err := newWorkDir()
	if err != nil {
		return nil, apperrors.Wrap("Start", req.BlobName, err)
	}
	defer cleanup()

	localPath := filepath.Join(work, "source"+filepath.Ext(req.BlobName))
	if err := src.Download(ctx, req.BlobName, localPath); err != nil {
		return nil, apperrors.Wrap("DownloadSource", req.BlobName, err)
	}

	// Normalize the audio before transcription: PCM 16-bit, 44100 Hz, stereo.
	wavPath := filepath.Join(work, "audio.wav")
	if err := o.transcoder.ExtractWAV(ctx, localPath, wavPath); err != nil {
		return nil, apperrors.Wrap("ExtractAudio", req.BlobName, err)
	}

	wav, err := os.Open(wavPath)
	if err != nil {
		return nil, apperrors.Wrap("ExtractAudio", req.BlobName, err)
	}
	transcript, err := o.transcriber.Transcribe(ctx, wav, req.SourceLang)
	_ = wav.Close()
	if err != nil {
		return nil, apperrors.Wrap("Transcribe", req.BlobName, err)
	}

	vttName := baseName(req.BlobName) + ".vtt"
	vttPath := filepath.Join(work, vttName)
	if err := os.WriteFile(vttPath, subtitle.Convert(transcript), 0o644); err != nil {
		return nil, apperrors.Wrap("ConvertToSubtitle", req.BlobName, err)
	}

	transcription, err := o.containers.Get(o.cfg.TranscriptionContainer)
	if err != nil {
		return nil, apperrors.Wrap("UploadSubtitle", req.BlobName, err)
	}
	vttURL, err := transcription.Upload(ctx, vttName, vttPath)
	if err != nil {
		return nil, apperrors.Wrap("UploadSubtitle", req.BlobName, err)
	}
	observability.Logger.Info("subtitle uploaded",
		zap.String("blob", req.BlobName),
		zap.String("subtitle", vttName))

	resultURL, err := o.jobs.StartProcess(ctx, translate.StartParams{
		SourceLocale:    req.SourceLang,
		TargetLocale:    req.TargetLang,
		VideoFileURL:    src.URL(req.BlobName),
		SubtitleFileURL: vttURL,
		DisplayName:     req.BlobName,
	})
	if err != nil {
		return nil, apperrors.Wrap("TranslateWhole", req.BlobName, err)
	}

	resultPath := filepath.Join(work, "result.mp4")
	if err := o.downloadURL(ctx, resultURL, resultPath); err != nil {
		return nil, apperrors.Wrap("DownloadResult", req.BlobName, err)
	}

	target, err := o.containers.Get(o.cfg.TargetContainer)
	if err != nil {
		return nil, apperrors.Wrap("UploadResult", req.BlobName, err)
	}
	resultName := baseName(req.BlobName) + ".mp4"
	if _, err := target.Upload(ctx, resultName, resultPath); err != nil {
		return nil, apperrors.Wrap("UploadResult", req.BlobName, err)
	}

	observability.Logger.Info("translation complete",
		zap.String("blob", req.BlobName),
		zap.String("container", o.cfg.TargetContainer),
		zap.String("object", resultName))

	return &Result{
		Mode:       ModeFull,
		Container:  o.cfg.TargetContainer,
		ObjectName: resultName,
	}, nil
}

// Split downloads the source and uploads size-bounded segments to the
// processing container, without translating anything.
func (o *Orchestrator) Split(ctx context.Context, blobName string) ([]Segment, error) {
	if strings.TrimSpace(blobName) == "" {
		return nil, fmt.Errorf("%w: blobName is required", apperrors.ErrInvalidRequest)
	}

	src, err := o.containers.Get(o.cfg.SourceContainer)
	if err != nil {
		return nil, apperrors.Wrap("Start", blobName, err)
	}
	exists, err := src.Exists(ctx, blobName)
	if err != nil {
		return nil, apperrors.Wrap("CheckSource", blobName, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: blob %q in container %q",
			apperrors.ErrNotFound, blobName, o.cfg.SourceContainer)
	}

	work, cleanup, err := newWorkDir()
	if err != nil {
		return nil, apperrors.Wrap("Start", blobName, err)
	}
	defer cleanup()

	localPath := filepath.Join(work, "source"+filepath.Ext(blobName))
	if err := src.Download(ctx, blobName, localPath); err != nil {
		return nil, apperrors.Wrap("DownloadSource", blobName, err)
	}

	return o.splitAndUpload(ctx, blobName, localPath, work)
}

// splitAndUpload probes the source, segments it to the computed
// duration, and uploads each piece to the processing container. Local
// segment files are deleted as soon as their upload is confirmed.
func (o *Orchestrator) splitAndUpload(ctx context.Context, blobName, localPath, work string) ([]Segment, error) {
	seconds, err := o.splitSeconds(ctx, localPath)
	if err != nil {
		return nil, apperrors.Wrap("Segment", blobName, err)
	}

	segDir := filepath.Join(work, "segments")
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return nil, apperrors.Wrap("Segment", blobName, err)
	}

	observability.Logger.Info("splitting video",
		zap.String("blob", blobName),
		zap.Int("segment_seconds", seconds))

	paths, err := o.transcoder.Segment(ctx, localPath, segDir, seconds)
	if err != nil {
		return nil, apperrors.Wrap("Segment", blobName, err)
	}

	processing, err := o.containers.Get(o.cfg.ProcessingContainer)
	if err != nil {
		return nil, apperrors.Wrap("UploadSegments", blobName, err)
	}

	segments := make([]Segment, 0, len(paths))
	for i, path := range paths {
		name := fmt.Sprintf("%s_%d.mp4", baseName(blobName), i+1)
		url, err := processing.Upload(ctx, name, path)
		if err != nil {
			return nil, apperrors.Wrap("UploadSegments", blobName, err)
		}
		if err := os.Remove(path); err != nil {
			observability.Logger.Warn("segment cleanup failed",
				zap.String("path", path),
				zap.Error(err))
		}
		segments = append(segments, Segment{Name: name, RemoteURL: url})
	}

	observability.Logger.Info("segments uploaded",
		zap.String("blob", blobName),
		zap.Int("count", len(segments)))
	return segments, nil
}

// splitSeconds computes the per-segment duration for the local file.
func (o *Orchestrator) splitSeconds(ctx context.Context, localPath string) (int, error) {
	seconds, err := o.transcoder.ProbeDuration(ctx, localPath)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return 0, err
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)

	return media.SplitSeconds(seconds, sizeMB, o.cfg.SegmentSizeMB)
}

// downloadURL fetches the translated media from the vendor URL.
func (o *Orchestrator) downloadURL(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apperrors.APIError{
			Service: "translation",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(body)),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// newWorkDir creates a per-request scratch directory and returns a
// cleanup func that removes the whole tree. Cleanup failures are logged
// but never override the stage error the caller is returning.
func newWorkDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "videotranslate-")
	if err != nil {
		return "", nil, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			observability.Logger.Warn("work dir cleanup failed",
				zap.String("dir", dir),
				zap.Error(err))
		}
	}
	return dir, cleanup, nil
}

// baseName strips the extension from a blob name.
func baseName(blobName string) string {
	return strings.TrimSuffix(blobName, filepath.Ext(blobName))
}
