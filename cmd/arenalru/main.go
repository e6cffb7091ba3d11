// Command arenalru serves a fixed-capacity LRU blob cache over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obot-platform/arenalru/internal/api"
	"github.com/obot-platform/arenalru/internal/blobcache"
	"github.com/obot-platform/arenalru/internal/config"
	"github.com/obot-platform/arenalru/internal/logger"
	"github.com/obot-platform/arenalru/internal/sysinfo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:          "arenalru",
		Short:        "Fixed-capacity LRU blob cache",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, envFile)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&envFile, "env", ".env", "path to a dotenv file, ignored when missing")

	return cmd
}

func run(ctx context.Context, configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	checkUploadLimit(cfg, log)

	cache, err := blobcache.New(cfg.CacheDir, cfg.Capacity, blobcache.Options{Compress: cfg.Compress}, log.Zap())
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn("close cache", "error", err)
		}
	}()

	handler := api.NewHandler(cache, log, cfg.MaxBlobBytes)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if configPath != "" {
		go watchConfig(ctx, configPath, cfg, log)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Listen, "capacity", cfg.Capacity, "dir", cfg.CacheDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// watchConfig applies log level changes from the config file. Other settings
// need a restart; capacity in particular is fixed for the life of the cache.
func watchConfig(ctx context.Context, path string, current *config.Config, log *logger.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			log.Warn("config reload failed, keeping current settings", "error", err)
			return
		}
		if cfg.LogLevel != log.Level() {
			if err := log.SetLevel(cfg.LogLevel); err != nil {
				log.Warn("ignoring log level", "level", cfg.LogLevel, "error", err)
			} else {
				log.Info("log level changed", "level", cfg.LogLevel)
			}
		}
		if cfg.Capacity != current.Capacity {
			log.Warn("capacity change requires a restart", "current", current.Capacity, "configured", cfg.Capacity)
		}
	})
	if err != nil {
		log.Warn("config watch stopped", "error", err)
	}
}

// checkUploadLimit warns when max_blob_bytes is large relative to host
// memory. Uploads are buffered whole before they are stored.
func checkUploadLimit(cfg *config.Config, log *logger.Logger) {
	total, err := sysinfo.MemoryOrFallback()
	if err != nil {
		log.Debug("host memory unknown, assuming fallback", "bytes", total, "error", err)
	}
	if uint64(cfg.MaxBlobBytes) > total/4 {
		log.Warn("max_blob_bytes exceeds a quarter of host memory",
			"max_blob_bytes", cfg.MaxBlobBytes,
			"host_memory", total,
		)
	}
}
