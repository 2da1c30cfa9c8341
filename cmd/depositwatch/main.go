package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwoolab/depositwatch/internal/callback"
	"github.com/jwoolab/depositwatch/internal/config"
	"github.com/jwoolab/depositwatch/internal/confirm"
	"github.com/jwoolab/depositwatch/internal/ledger"
	"github.com/jwoolab/depositwatch/internal/match"
	"github.com/jwoolab/depositwatch/internal/relay"
	"github.com/jwoolab/depositwatch/internal/server"
	"github.com/jwoolab/depositwatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/depositwatch.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting depositwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"storage_driver", cfg.Storage.Driver,
		"relay_url", cfg.Relay.StreamURL,
		"deadline", cfg.Confirm.Deadline,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Open the charge ledger
	led, err := ledger.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer led.Close()

	logger.Info("ledger ready", "driver", cfg.Storage.Driver)

	// Wire the confirmation pipeline
	engine := match.NewEngine(led, cfg.Confirm.DedupeWindow, logger)

	relayCfg := relay.Config{
		StreamURL:        cfg.Relay.StreamURL,
		HandshakeTimeout: cfg.Relay.HandshakeTimeout,
		IdleTimeout:      cfg.Relay.IdleTimeout,
		WriteTimeout:     cfg.Relay.WriteTimeout,
		BufferSize:       cfg.Relay.BufferSize,
	}

	policy := confirm.Policy{
		Deadline:          cfg.Confirm.Deadline,
		MaxRetries:        cfg.Confirm.MaxRetries,
		CleanCloseBackoff: cfg.Confirm.CleanCloseBackoff,
		ErrorBackoff:      cfg.Confirm.ErrorBackoff,
	}

	runner := confirm.NewRunner(relayCfg, policy, engine, logger)

	notifier := callback.NewNotifier(
		cfg.Callback.URL,
		callback.WithTimeout(cfg.Callback.Timeout),
		callback.WithLogger(logger),
	)

	// HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.NewRouter(runner, led, notifier, logger),
	}

	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown: in-flight runs are bounded by their own
	// deadlines, so only a short drain is given here.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown timed out", "error", err)
	}

	logger.Info("depositwatch stopped")
}
