package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2024-01-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	setDefaults()

	assert.Equal(t, "localhost", viper.GetString("server.host"))
	assert.Equal(t, 8080, viper.GetInt("server.port"))
	assert.Equal(t, "info", viper.GetString("logging.level"))

	assert.Equal(t, "source", viper.GetString("storage.source_container"))
	assert.Equal(t, "processing", viper.GetString("storage.processing_container"))

	assert.Equal(t, 480, viper.GetInt("pipeline.segment_size_mb"))
	assert.Equal(t, 5, viper.GetInt("pipeline.max_parallel"))
}

func TestExitError(t *testing.T) {
	err := exitError(64, "Invalid configuration", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "Invalid configuration")
	assert.Contains(t, err.Error(), "exit code 64")
}
