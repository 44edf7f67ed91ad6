package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billy784512/azure-blob-video-translator/internal/config"
)

func TestBuildRegistryFileBackend(t *testing.T) {
	dir := t.TempDir()

	registry, err := buildRegistry(context.Background(), config.StorageConfig{
		Endpoint:               "file://" + dir,
		SourceContainer:        "source",
		TargetContainer:        "target",
		TranscriptionContainer: "transcription",
		ProcessingContainer:    "processing",
		Extra:                  []string{"scratch"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"processing", "scratch", "source", "target", "transcription"},
		registry.Names())

	c, err := registry.Get("source")
	require.NoError(t, err)

	exists, err := c.Exists(context.Background(), "nothing.mp4")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStorageHealthChecker(t *testing.T) {
	dir := t.TempDir()
	registry, err := buildRegistry(context.Background(), config.StorageConfig{
		Endpoint:        "file://" + dir,
		SourceContainer: "source",
	})
	require.NoError(t, err)

	t.Run("healthy container", func(t *testing.T) {
		checker := storageHealthChecker{registry: registry, container: "source"}
		assert.NoError(t, checker.CheckHealth(context.Background()))
	})

	t.Run("unknown container", func(t *testing.T) {
		checker := storageHealthChecker{registry: registry, container: "missing"}
		assert.Error(t, checker.CheckHealth(context.Background()))
	})
}

func TestFFmpegHealthChecker(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		checker := ffmpegHealthChecker{path: "definitely-not-a-real-binary"}
		assert.Error(t, checker.CheckHealth(context.Background()))
	})

	t.Run("shell is resolvable", func(t *testing.T) {
		checker := ffmpegHealthChecker{path: "sh"}
		assert.NoError(t, checker.CheckHealth(context.Background()))
	})
}
