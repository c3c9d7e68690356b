package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/csvexplorer/internal/config"
	"github.com/JonMunkholm/csvexplorer/internal/core"
	"github.com/JonMunkholm/csvexplorer/internal/logging"
	"github.com/JonMunkholm/csvexplorer/internal/metrics"
	"github.com/JonMunkholm/csvexplorer/internal/web"
)

type serveOptions struct {
	configPath string
	envFile    string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the web server. Settings come from defaults, then the optional
YAML file given by --config, then environment variables. A .env file in the
working directory (or the one named by --env-file) is loaded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default: .env if present)")
	return cmd
}

func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		slog.Info("loaded env file", "path", path)
		return nil
	}
	// Overload overwrites existing env vars
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}
	return nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	if err := loadEnv(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	core.UploadTimeout = cfg.Upload.Timeout

	var m *metrics.Metrics
	var rec core.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		rec = m
	}

	service := core.NewService(core.Options{
		MaxFileSize:          cfg.Upload.MaxFileSize,
		MaxRows:              cfg.Upload.MaxRows,
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		SessionTTL:           cfg.Session.TTL,
		MaxSessions:          cfg.Session.MaxSessions,
		Recorder:             rec,
	})
	server := web.NewServer(service, cfg, m)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Sessions().RunSweeper(gctx, cfg.Session.SweepInterval)
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Shutdown(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
