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

	"github.com/alphabot-ai/snooze/internal/apiclient"
	"github.com/alphabot-ai/snooze/internal/config"
	"github.com/alphabot-ai/snooze/internal/scheduler"
	"github.com/alphabot-ai/snooze/internal/web"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, logger)

	webHandler, err := web.NewHandler(api, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize web handler",
			"error", err)
		os.Exit(1)
	}

	sched := scheduler.New(ctx, logger)
	if err := sched.Add("session sweep", cfg.SessionSweepSpec, func(ctx context.Context) error {
		webHandler.Sweep(ctx)
		return nil
	}); err != nil {
		logger.Error("Failed to schedule session sweep",
			"error", err,
			"spec", cfg.SessionSweepSpec)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      webHandler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Hack or Snooze",
			"addr", addr,
			"api", cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error",
				"error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown",
			"error", err)
	}

	logger.Info("Server stopped")
}
