// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. ABVT_SERVER_PORT=9000.
const EnvPrefix = "ABVT"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Translation   TranslationConfig   `mapstructure:"translation"`
	Media         MediaConfig         `mapstructure:"media"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// StorageConfig configures the object store and the container namespace.
//
// Containers are pre-provisioned at startup from the four role names plus
// Extra; requesting any other name at runtime fails with not-found.
type StorageConfig struct {
	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Leave empty for AWS S3.
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`

	// Container roles used by the pipeline.
	SourceContainer        string `mapstructure:"source_container"`
	TargetContainer        string `mapstructure:"target_container"`
	TranscriptionContainer string `mapstructure:"transcription_container"`
	ProcessingContainer    string `mapstructure:"processing_container"`

	// Extra lists additional container names to provision at startup.
	Extra []string `mapstructure:"extra_containers"`
}

// ContainerNames returns every container name to provision, role
// containers first, duplicates removed.
func (s StorageConfig) ContainerNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, n := range append([]string{
		s.SourceContainer,
		s.TargetContainer,
		s.TranscriptionContainer,
		s.ProcessingContainer,
	}, s.Extra...) {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// TranscriptionConfig configures the speech-to-text vendor API.
type TranscriptionConfig struct {
	URL             string `mapstructure:"url"`
	SubscriptionKey string `mapstructure:"subscription_key"`
}

// TranslationConfig configures the video translation vendor API.
type TranslationConfig struct {
	// Endpoint is the regional base URL of the translation API. A single
	// %s placeholder, if present, is substituted with Region.
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	APIVersion      string        `mapstructure:"api_version"`
	SubscriptionKey string        `mapstructure:"subscription_key"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// BaseURL resolves the region placeholder in Endpoint.
func (t TranslationConfig) BaseURL() string {
	if strings.Contains(t.Endpoint, "%s") {
		return fmt.Sprintf(t.Endpoint, t.Region)
	}
	return t.Endpoint
}

// MediaConfig configures the local transcoder.
type MediaConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// PipelineConfig configures orchestrator behavior.
type PipelineConfig struct {
	// SegmentSizeMB is the target size of each video segment.
	SegmentSizeMB int `mapstructure:"segment_size_mb"`

	// MaxParallel caps concurrent translation jobs during fan-out.
	MaxParallel int `mapstructure:"max_parallel"`

	// SubmitRateLimit is the maximum job submissions per second during
	// fan-out. Zero means unlimited.
	SubmitRateLimit float64 `mapstructure:"submit_rate_limit"`
}

// SetDefaults registers configuration defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	// Empty defaults keep env-only keys visible to Unmarshal.
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.profile", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.force_path_style", false)
	v.SetDefault("storage.source_container", "source")
	v.SetDefault("storage.target_container", "target")
	v.SetDefault("storage.transcription_container", "transcription")
	v.SetDefault("storage.processing_container", "processing")

	v.SetDefault("transcription.url", "")
	v.SetDefault("transcription.subscription_key", "")

	v.SetDefault("translation.endpoint", "")
	v.SetDefault("translation.region", "")
	v.SetDefault("translation.subscription_key", "")
	v.SetDefault("translation.api_version", "2024-05-20-preview")
	v.SetDefault("translation.poll_interval", 10*time.Second)

	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.ffprobe_path", "ffprobe")

	v.SetDefault("pipeline.segment_size_mb", 480)
	v.SetDefault("pipeline.max_parallel", 5)
	v.SetDefault("pipeline.submit_rate_limit", 0.0)
}

// Load reads configuration from the optional file path and the
// environment, applying defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Pipeline.SegmentSizeMB <= 0 {
		return fmt.Errorf("pipeline.segment_size_mb must be positive")
	}
	if c.Pipeline.MaxParallel <= 0 {
		return fmt.Errorf("pipeline.max_parallel must be positive")
	}
	if c.Translation.PollInterval <= 0 {
		return fmt.Errorf("translation.poll_interval must be positive")
	}
	for _, role := range []struct{ name, value string }{
		{"storage.source_container", c.Storage.SourceContainer},
		{"storage.target_container", c.Storage.TargetContainer},
		{"storage.transcription_container", c.Storage.TranscriptionContainer},
		{"storage.processing_container", c.Storage.ProcessingContainer},
	} {
		if strings.TrimSpace(role.value) == "" {
			return fmt.Errorf("%s is required", role.name)
		}
	}
	return nil
}
