package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/invoice-reconciler/internal/api/handlers"
	"github.com/eshaffer321/invoice-reconciler/internal/api/middleware"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// ConfigFrom maps the application config onto server settings.
func ConfigFrom(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg.API.Port > 0 {
		out.Port = cfg.API.Port
	}
	if len(cfg.API.AllowedOrigins) > 0 {
		out.AllowedOrigins = cfg.API.AllowedOrigins
	}
	return out
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	engine     *reconcile.Engine
	jobs       *service.ReconcileService
}

// NewServer creates a new API server.
// If jobs is nil, the batch job endpoints will not be available.
func NewServer(cfg Config, repo storage.Repository, engine *reconcile.Engine, jobs *service.ReconcileService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger.With("system", "api"),
		repo:   repo,
		engine: engine,
		jobs:   jobs,
	}

	s.setupMiddleware()
	s.setupRoutes()

	// Built up front so Shutdown is safe even if Start has not run yet
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Invoices and manual reconciliation
		invoicesHandler := handlers.NewInvoicesHandler(s.repo, s.engine, s.logger)
		r.Get("/invoices", invoicesHandler.List)
		r.Post("/invoices", invoicesHandler.Create)
		r.Get("/invoices/{id}", invoicesHandler.Get)
		r.Delete("/invoices/{id}", invoicesHandler.Delete)
		r.Get("/invoices/{id}/candidates", invoicesHandler.Candidates)
		r.Post("/invoices/{id}/confirm", invoicesHandler.Confirm)
		r.Delete("/invoices/{id}/reconciliation", invoicesHandler.Unlink)

		// Bank transactions
		transactionsHandler := handlers.NewTransactionsHandler(s.repo, s.logger)
		r.Get("/transactions", transactionsHandler.List)
		r.Get("/transactions/{id}", transactionsHandler.Get)
		r.Delete("/transactions/{id}", transactionsHandler.Delete)
		r.Post("/transactions/import", transactionsHandler.Import)

		// Batch reconciliation
		reconcileHandler := handlers.NewReconcileHandler(s.repo, s.engine, s.jobs, s.logger)
		r.Get("/reconcile/runs", reconcileHandler.ListRuns)
		r.Get("/reconcile/settings", reconcileHandler.Settings)
		if s.jobs != nil {
			r.Post("/reconcile", reconcileHandler.Start)
			r.Get("/reconcile/jobs", reconcileHandler.ListJobs)
			r.Get("/reconcile/jobs/{jobId}", reconcileHandler.GetJob)
			r.Delete("/reconcile/jobs/{jobId}", reconcileHandler.CancelJob)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
