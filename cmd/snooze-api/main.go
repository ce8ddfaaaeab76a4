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

	"github.com/alphabot-ai/snooze/internal/auth"
	"github.com/alphabot-ai/snooze/internal/config"
	"github.com/alphabot-ai/snooze/internal/devapi"
	"github.com/alphabot-ai/snooze/internal/scheduler"
	"github.com/alphabot-ai/snooze/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config",
			"error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Dev API stopped with error",
			"error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqliteStore, err := store.NewSQLiteStore(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := sqliteStore.Close(); err != nil {
			logger.Error("Failed to close db",
				"error", err,
				"dbPath", cfg.DatabasePath)
		}
	}()

	authService := auth.NewService(sqliteStore, cfg.TokenTTL)
	handler := devapi.NewHandler(sqliteStore, authService, logger)

	sched := scheduler.New(ctx, logger)
	err = sched.Add("token purge", cfg.TokenSweepSpec, func(ctx context.Context) error {
		n, err := authService.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Purged expired tokens",
			"count", n)
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule token purge: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.DevAPIHost, cfg.DevAPIPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting dev API",
			"addr", addr,
			"dbPath", cfg.DatabasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
