package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/billy784512/azure-blob-video-translator/internal/errors"
	"github.com/billy784512/azure-blob-video-translator/pkg/storage"
	"github.com/billy784512/azure-blob-video-translator/pkg/storage/file"
	"github.com/billy784512/azure-blob-video-translator/pkg/transcribe"
	"github.com/billy784512/azure-blob-video-translator/pkg/translate"
)

// fakeTranscoder fabricates segment and audio files without ffmpeg.
type fakeTranscoder struct {
	duration    float64
	segmentN    int
	probeErr    error
	segmentErr  error
	extractErr  error
	probeCalled bool
}

func (f *fakeTranscoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	f.probeCalled = true
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.duration, nil
}

func (f *fakeTranscoder) Segment(ctx context.Context, path, outDir string, seconds int) ([]string, error) {
	if f.segmentErr != nil {
		return nil, f.segmentErr
	}
	var paths []string
	for i := 0; i < f.segmentN; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("output%03d.mp4", i))
		if err := os.WriteFile(p, []byte(fmt.Sprintf("segment-%d", i)), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeTranscoder) ExtractWAV(ctx context.Context, path, outPath string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(outPath, []byte("RIFF-fake-wav"), 0o644)
}

// fakeTranscriber returns a fixed transcript and records the locale.
type fakeTranscriber struct {
	locale string
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav io.Reader, locale string) (*transcribe.Transcript, error) {
	f.locale = locale
	if f.err != nil {
		return nil, f.err
	}
	return &transcribe.Transcript{
		Phrases: []transcribe.Phrase{
			{OffsetMilliseconds: 0, DurationMilliseconds: 2000, Text: "Hi"},
			{OffsetMilliseconds: 2000, DurationMilliseconds: 1500, Text: "There"},
		},
	}, nil
}

// fakeJobs records started jobs and returns a fixed result URL.
type fakeJobs struct {
	mu        sync.Mutex
	started   []translate.StartParams
	resultURL string
	err       error
}

func (f *fakeJobs) StartProcess(ctx context.Context, p translate.StartParams) (string, error) {
	f.mu.Lock()
	f.started = append(f.started, p)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.resultURL, nil
}

func (f *fakeJobs) startedJobs() []translate.StartParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]translate.StartParams(nil), f.started...)
}

type testEnv struct {
	orchestrator *Orchestrator
	registry     *storage.Registry
	transcoder   *fakeTranscoder
	transcriber  *fakeTranscriber
	jobs         *fakeJobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	base := t.TempDir()
	var containers []storage.Container
	for _, name := range []string{"source", "target", "transcription", "processing"} {
		c, err := file.New(base, name)
		require.NoError(t, err)
		containers = append(containers, c)
	}
	registry, err := storage.NewRegistry(containers...)
	require.NoError(t, err)

	resultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("translated-bytes"))
	}))
	t.Cleanup(resultSrv.Close)

	transcoder := &fakeTranscoder{duration: 600, segmentN: 3}
	transcriber := &fakeTranscriber{}
	jobs := &fakeJobs{resultURL: resultSrv.URL + "/result.mp4"}

	orchestrator := New(registry, transcoder, transcriber, jobs, resultSrv.Client(), Config{
		SourceContainer:        "source",
		TargetContainer:        "target",
		TranscriptionContainer: "transcription",
		ProcessingContainer:    "processing",
		SegmentSizeMB:          480,
		MaxParallel:            5,
	})

	return &testEnv{
		orchestrator: orchestrator,
		registry:     registry,
		transcoder:   transcoder,
		transcriber:  transcriber,
		jobs:         jobs,
	}
}

func (e *testEnv) seedSource(t *testing.T, name, content string) storage.Container {
	t.Helper()
	src, err := e.registry.Get("source")
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(local, []byte(content), 0o644))
	_, err = src.Upload(context.Background(), name, local)
	require.NoError(t, err)
	return src
}

func (e *testEnv) containerObject(t *testing.T, container, key string) string {
	t.Helper()
	c, err := e.registry.Get(container)
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "download")
	require.NoError(t, c.Download(context.Background(), key, local))
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	return string(data)
}

func TestRunFullMode(t *testing.T) {
	env := newTestEnv(t)
	src := env.seedSource(t, "a.mp4", "source-video-bytes")

	result, err := env.orchestrator.Run(context.Background(), Request{
		BlobName:   "a.mp4",
		SourceLang: "en-US",
		TargetLang: "ja-JP",
		Mode:       ModeFull,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeFull, result.Mode)
	assert.Equal(t, "target", result.Container)
	assert.Equal(t, "a.mp4", result.ObjectName)

	assert.Equal(t, "en-US", env.transcriber.locale)

	wantVTT := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:02.000\nHi\n\n" +
		"00:00:02.000 --> 00:00:03.500\nThere\n\n"
	assert.Equal(t, wantVTT, env.containerObject(t, "transcription", "a.vtt"))

	started := env.jobs.startedJobs()
	require.Len(t, started, 1)
	assert.Equal(t, "en-US", started[0].SourceLocale)
	assert.Equal(t, "ja-JP", started[0].TargetLocale)
	assert.Equal(t, src.URL("a.mp4"), started[0].VideoFileURL)
	assert.NotEmpty(t, started[0].SubtitleFileURL)

	assert.Equal(t, "translated-bytes", env.containerObject(t, "target", "a.mp4"))
}

func TestRunSimpleMode(t *testing.T) {
	env := newTestEnv(t)
	env.seedSource(t, "movie.mp4", "source-video-bytes")

	result, err := env.orchestrator.Run(context.Background(), Request{
		BlobName:   "movie.mp4",
		SourceLang: "en-US",
		TargetLang: "de-DE",
		Mode:       ModeSimple,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeSimple, result.Mode)
	assert.Len(t, result.ResultURLs, 3)

	// One job per segment, each referencing its uploaded segment copy.
	started := env.jobs.startedJobs()
	require.Len(t, started, 3)

	processing, err := env.registry.Get("processing")
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("movie_%d.mp4", i)
		exists, err := processing.Exists(context.Background(), name)
		require.NoError(t, err)
		assert.True(t, exists, "expected segment %s in processing container", name)
	}
}

func TestRunValidatesRequestBeforeAnyWork(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing blob name", Request{SourceLang: "en-US", TargetLang: "ja-JP", Mode: ModeFull}},
		{"missing source lang", Request{BlobName: "a.mp4", TargetLang: "ja-JP", Mode: ModeFull}},
		{"missing target lang", Request{BlobName: "a.mp4", SourceLang: "en-US", Mode: ModeFull}},
		{"missing mode", Request{BlobName: "a.mp4", SourceLang: "en-US", TargetLang: "ja-JP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orchestrator.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		})
	}

	assert.Empty(t, env.jobs.startedJobs())
	assert.False(t, env.transcoder.probeCalled)
}

func TestRunMissingSourceBlob(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Run(context.Background(), Request{
		BlobName:   "missing.mp4",
		SourceLang: "en-US",
		TargetLang: "ja-JP",
		Mode:       ModeFull,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, env.jobs.startedJobs())
}

func TestRunSimpleModePropagatesJobFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedSource(t, "movie.mp4", "source-video-bytes")
	env.jobs.err = errors.New("vendor unavailable")

	_, err := env.orchestrator.Run(context.Background(), Request{
		BlobName:   "movie.mp4",
		SourceLang: "en-US",
		TargetLang: "de-DE",
		Mode:       ModeSimple,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "vendor unavailable")
}

func TestRunFullModePropagatesExtractionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedSource(t, "a.mp4", "source-video-bytes")
	env.transcoder.extractErr = fmt.Errorf("%w: no audio stream", apperrors.ErrProbeFailed)

	_, err := env.orchestrator.Run(context.Background(), Request{
		BlobName:   "a.mp4",
		SourceLang: "en-US",
		TargetLang: "ja-JP",
		Mode:       ModeFull,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProbeFailed)
	assert.Empty(t, env.jobs.startedJobs())
}

func TestSplit(t *testing.T) {
	env := newTestEnv(t)
	env.seedSource(t, "movie.mp4", "source-video-bytes")

	segments, err := env.orchestrator.Split(context.Background(), "movie.mp4")
	require.NoError(t, err)
	require.Len(t, segments, 3)

	for i, seg := range segments {
		assert.Equal(t, fmt.Sprintf("movie_%d.mp4", i+1), seg.Name)
		assert.NotEmpty(t, seg.RemoteURL)
	}

	assert.Equal(t, "segment-0", env.containerObject(t, "processing", "movie_1.mp4"))
}

func TestSplitValidatesBlobName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Split(context.Background(), "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestSplitMissingBlob(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Split(context.Background(), "missing.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunCleansUpWorkDirs(t *testing.T) {
	env := newTestEnv(t)
	env.seedSource(t, "movie.mp4", "source-video-bytes")

	before := workDirCount(t)

	_, err := env.orchestrator.Run(context.Background(), Request{
		BlobName:   "movie.mp4",
		SourceLang: "en-US",
		TargetLang: "de-DE",
		Mode:       ModeSimple,
	})
	require.NoError(t, err)

	// Failure paths must clean up too.
	env.transcoder.segmentErr = fmt.Errorf("%w: corrupt container", apperrors.ErrSegmentationFailed)
	_, err = env.orchestrator.Split(context.Background(), "movie.mp4")
	require.Error(t, err)

	assert.Equal(t, before, workDirCount(t))
}

func workDirCount(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "videotranslate-*"))
	require.NoError(t, err)
	return len(matches)
}
