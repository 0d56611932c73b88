// Command api runs the reconciliation HTTP API on its own, configured from
// config.yaml or RECONCILER_* environment variables. It is the entrypoint
// used by container deployments; `reconciler serve` does the same from the CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/invoice-reconciler/internal/cli"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

func main() {
	cfg := config.LoadOrEnvWithPath(getEnv("RECONCILER_CONFIG", config.DefaultPath))
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Observability.Logging)
	slog.SetDefault(logger)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.Storage.DatabasePath)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.RunServe(ctx, cfg, store, logger, cli.ServeOptions{})
	stop()

	if closeErr := store.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	if err != nil {
		logger.Error("API server stopped", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
