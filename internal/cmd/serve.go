package cmd

import (
	"context"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/billy784512/azure-blob-video-translator/internal/config"
	"github.com/billy784512/azure-blob-video-translator/internal/observability"
	"github.com/billy784512/azure-blob-video-translator/internal/server"
	"github.com/billy784512/azure-blob-video-translator/internal/server/handlers"
	"github.com/billy784512/azure-blob-video-translator/pkg/media"
	"github.com/billy784512/azure-blob-video-translator/pkg/pipeline"
	"github.com/billy784512/azure-blob-video-translator/pkg/storage"
	"github.com/billy784512/azure-blob-video-translator/pkg/storage/file"
	"github.com/billy784512/azure-blob-video-translator/pkg/storage/s3"
	"github.com/billy784512/azure-blob-video-translator/pkg/transcribe"
	"github.com/billy784512/azure-blob-video-translator/pkg/translate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the translation pipeline HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	if f := cmd.Root().PersistentFlags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = f.Value.String()
	}

	if err := observability.Init(cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := buildRegistry(ctx, cfg.Storage)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage", err)
	}

	transcoder := media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)

	transcriber := transcribe.New(transcribe.Config{
		URL:             cfg.Transcription.URL,
		SubscriptionKey: cfg.Transcription.SubscriptionKey,
	}, nil)

	jobs := translate.New(translate.Config{
		BaseURL:         cfg.Translation.BaseURL(),
		APIVersion:      cfg.Translation.APIVersion,
		SubscriptionKey: cfg.Translation.SubscriptionKey,
		PollInterval:    cfg.Translation.PollInterval,
	}, nil)

	orchestrator := pipeline.New(registry, transcoder, transcriber, jobs, nil, pipeline.Config{
		SourceContainer:        cfg.Storage.SourceContainer,
		TargetContainer:        cfg.Storage.TargetContainer,
		TranscriptionContainer: cfg.Storage.TranscriptionContainer,
		ProcessingContainer:    cfg.Storage.ProcessingContainer,
		SegmentSizeMB:          cfg.Pipeline.SegmentSizeMB,
		MaxParallel:            cfg.Pipeline.MaxParallel,
		SubmitRateLimit:        cfg.Pipeline.SubmitRateLimit,
	})

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.RegisterChecker("storage", storageHealthChecker{
		registry:  registry,
		container: cfg.Storage.SourceContainer,
	})
	hm.RegisterChecker("ffmpeg", ffmpegHealthChecker{path: cfg.Media.FFmpegPath})

	srv := server.New(cfg.Server.Host, cfg.Server.Port)
	srv.MountPipeline(handlers.NewPipeline(orchestrator, cfg.Storage.ProcessingContainer))

	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("http server listening",
			zap.String("addr", srv.Addr()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		observability.Logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "HTTP server failed", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitError(foundry.ExitSignalInt, "Shutdown incomplete", err)
	}
	return nil
}

// buildRegistry provisions every configured container up front so the
// runtime namespace is fixed. A file:// storage endpoint selects the
// local directory backend, anything else the S3 backend.
func buildRegistry(ctx context.Context, cfg config.StorageConfig) (*storage.Registry, error) {
	names := cfg.ContainerNames()
	containers := make([]storage.Container, 0, len(names))

	if baseDir, ok := strings.CutPrefix(cfg.Endpoint, "file://"); ok {
		for _, name := range names {
			c, err := file.New(baseDir, name)
			if err != nil {
				return nil, err
			}
			containers = append(containers, c)
		}
		return storage.NewRegistry(containers...)
	}

	clients, err := s3.NewClientSet(ctx, s3.Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		Profile:         cfg.Profile,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		ForcePathStyle:  cfg.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		c, err := clients.Container(ctx, name)
		if err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}
	return storage.NewRegistry(containers...)
}

// storageHealthChecker verifies the source container answers requests.
type storageHealthChecker struct {
	registry  *storage.Registry
	container string
}

func (c storageHealthChecker) CheckHealth(ctx context.Context) error {
	container, err := c.registry.Get(c.container)
	if err != nil {
		return err
	}
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = container.Exists(checkCtx, ".healthcheck")
	return err
}


// ffmpegHealthChecker verifies the transcoder binary is resolvable.
type ffmpegHealthChecker struct {
	path string
}

func (c ffmpegHealthChecker) CheckHealth(ctx context.Context) error {
	_, err := exec.LookPath(c.path)
	return err
}
