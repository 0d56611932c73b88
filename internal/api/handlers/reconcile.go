package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// ReconcileHandler handles batch jobs, run history and settings.
type ReconcileHandler struct {
	*Base
	engine *reconcile.Engine
	jobs   *service.ReconcileService
	logger *slog.Logger
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(repo storage.Repository, engine *reconcile.Engine, jobs *service.ReconcileService, logger *slog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		Base:   NewBase(repo),
		engine: engine,
		jobs:   jobs,
		logger: logger,
	}
}

// Start handles POST /api/reconcile - starts a batch job.
func (h *ReconcileHandler) Start(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.jobs.StartReconcile(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrBatchRunning) {
			h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
			return
		}
		h.logger.Error("failed to start reconcile job", "error", err)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartReconcileResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// ListJobs handles GET /api/reconcile/jobs - lists jobs, newest first.
// With ?active=true only pending and running jobs are returned.
func (h *ReconcileHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var jobs []*service.Job
	if ParseBoolParam(r, "active", false) {
		jobs = h.jobs.ListActiveJobs()
	} else {
		jobs = h.jobs.ListJobs()
	}

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, h.jobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// GetJob handles GET /api/reconcile/jobs/{jobId}.
func (h *ReconcileHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconcile job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, h.jobResponse(job))
}

// CancelJob handles DELETE /api/reconcile/jobs/{jobId}.
func (h *ReconcileHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.jobs.CancelJob(jobID); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconcile job"))
			return
		}
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "cancel_failed",
			Message: err.Error(),
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Reconcile job cancellation requested",
	})
}

// ListRuns handles GET /api/reconcile/runs - returns recorded batch runs.
func (h *ReconcileHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Settings handles GET /api/reconcile/settings - returns the active
// matching parameters and thresholds.
func (h *ReconcileHandler) Settings(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.MatcherConfig()
	thresholds := h.engine.Thresholds()

	h.WriteJSON(w, http.StatusOK, dto.SettingsResponse{
		DateWindowDays:  cfg.DateWindowDays,
		AmountTolerance: cfg.AmountTolerance,
		AmountFloor:     cfg.AmountFloor,
		SearchTolerance: cfg.SearchTolerance,
		AutoConfirm:     thresholds.AutoConfirm,
		Review:          thresholds.Review,
	})
}

// jobResponse adds the stale flag to toJobResponse.
func (h *ReconcileHandler) jobResponse(job *service.Job) dto.JobResponse {
	response := toJobResponse(job)
	response.Stale = h.jobs.Stale(job.ID)
	return response
}

// toJobResponse converts a service job to an API response.
func toJobResponse(job *service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.ProgressResponse{
			CurrentPhase:      job.Progress.CurrentPhase,
			TotalInvoices:     job.Progress.TotalInvoices,
			ProcessedInvoices: job.Progress.ProcessedInvoices,
			LastUpdate:        job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Result != nil {
		response.Result = &dto.JobResultResponse{
			RunID:         job.Result.RunID,
			Processed:     job.Result.Processed,
			AutoConfirmed: job.Result.AutoConfirmed,
			ManualReview:  job.Result.ManualReview,
			NoMatch:       job.Result.NoMatch,
			Errors:        job.Result.Errors,
			Cancelled:     job.Result.Cancelled,
		}
	}

	if job.Error != "" {
		errMsg := job.Error
		response.Error = &errMsg
	}

	return response
}

func toRunResponse(run storage.Run) dto.RunResponse {
	response := dto.RunResponse{
		ID:            run.ID,
		JobID:         run.JobID,
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		Status:        run.Status,
		Processed:     run.Processed,
		AutoConfirmed: run.AutoConfirmed,
		ManualReview:  run.ManualReview,
		NoMatch:       run.NoMatch,
		Errors:        run.Errors,
		Cancelled:     run.Cancelled,
	}
	if run.CompletedAt != nil {
		response.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return response
}
