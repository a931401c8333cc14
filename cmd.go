package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/s1natex/taskmanager-api/internal/config"
	"github.com/s1natex/taskmanager-api/internal/tasks"
	"github.com/s1natex/taskmanager-api/internal/telemetry"
)

const (
	serviceName     = "tasks-api"
	shutdownTimeout = 10 * time.Second
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Task tracking HTTP API",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); TASKS_* env vars override it")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Apply migrations and serve the HTTP API",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				return runMigrate(cmd.Context(), cfg)
			},
		},
	)
	return root
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(repo, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", slog.String("error", err.Error()))
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if cfg.Database.Driver == "memory" {
		logger.Info("migrations_skipped", slog.String("driver", cfg.Database.Driver))
		return nil
	}
	_, closeRepo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return err
	}
	return closeRepo()
}

// openRepository returns the configured store with its schema applied.
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (tasks.Repository, func() error, error) {
	if cfg.Driver == "memory" {
		return tasks.NewInMemoryRepo(), func() error { return nil }, nil
	}

	dsn, err := tasks.SQLiteFileDSN(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite dsn: %w", err)
	}
	repo, err := tasks.NewSQLiteRepo(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := repo.ApplyMigrations(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	slog.InfoContext(ctx, "migrations_applied", slog.String("path", cfg.Path))
	return repo, repo.Close, nil
}
