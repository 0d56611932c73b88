package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/api"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 30 * time.Second

// jobCleanupInterval is how often finished and stale batch jobs are swept.
const jobCleanupInterval = 5 * time.Minute

// ServeOptions overrides config values from the command line.
type ServeOptions struct {
	Port int // 0 keeps the configured port
}

// RunServe runs the API server until ctx is cancelled.
func RunServe(ctx context.Context, cfg *config.Config, store storage.Repository, logger *slog.Logger, opts ServeOptions) error {
	engineOpts := reconcile.OptionsFromConfig(cfg)
	engineOpts.Runs = store
	engineOpts.Logger = logger
	engine := reconcile.NewEngine(store, engineOpts)

	jobs := service.NewReconcileService(engine, logger)
	jobs.StartBackgroundCleanup(jobCleanupInterval)
	defer jobs.StopBackgroundCleanup()

	apiCfg := api.ConfigFrom(cfg)
	if opts.Port > 0 {
		apiCfg.Port = opts.Port
	}
	server := api.NewServer(apiCfg, store, engine, jobs, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		// Start only returns early on a listen failure
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Running batches stop scheduling new invoices
	for _, job := range jobs.ListActiveJobs() {
		if err := jobs.CancelJob(job.ID); err != nil {
			logger.Warn("failed to cancel reconcile job", "job_id", job.ID, "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server shutdown error", slog.Any("error", err))
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
