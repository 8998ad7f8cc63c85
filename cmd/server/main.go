package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/eurometrics/internal/config"
	"github.com/JonMunkholm/eurometrics/internal/logging"
	"github.com/JonMunkholm/eurometrics/internal/session"
	"github.com/JonMunkholm/eurometrics/internal/source"
	"github.com/JonMunkholm/eurometrics/internal/web"
)

func main() {
	// Variables already in the environment win over .env
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"source_driver", cfg.Source.Driver,
		"source_table", cfg.Source.Table,
		"max_concurrent_loads", cfg.Session.MaxConcurrentLoads,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	loader, closeSource, err := source.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open data source", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	limiter := session.NewLoadLimiter(cfg.Session.MaxConcurrentLoads, cfg.Session.LoadWaitTime)
	store := session.NewStore(loader, limiter)
	server := web.NewServer(store, limiter, cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go store.RunJanitor(jobCtx, cfg.Session.IdleTimeout, cfg.Session.SweepInterval)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Loads started before shutdown hold a pool connection
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for table loads to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("table loads did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		closeSource()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
