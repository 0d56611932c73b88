package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
)

// JobStatus represents the current state of a batch job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress updates
	// before being considered stale.
	DefaultJobStaleThreshold = 30 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = 2 * time.Hour
)

// Batcher runs one batch reconciliation pass. *reconcile.Engine implements it.
type Batcher interface {
	ReconcileAllWith(ctx context.Context, opts reconcile.BatchOptions) (*reconcile.Stats, error)
}

// JobProgress holds real-time progress information.
type JobProgress struct {
	CurrentPhase      string    `json:"current_phase"` // "pending", "reconciling", "cancelling", "completed", "failed", "cancelled"
	TotalInvoices     int       `json:"total_invoices"`
	ProcessedInvoices int       `json:"processed_invoices"`
	LastUpdate        time.Time `json:"last_update"`
}

// Job represents a running or finished batch reconciliation.
type Job struct {
	ID          string           `json:"id"`
	Status      JobStatus        `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Progress    JobProgress      `json:"progress"`
	Result      *reconcile.Stats `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	cancelFunc  context.CancelFunc
}

func (j *Job) active() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// ErrBatchRunning is returned when a batch is already in progress.
var ErrBatchRunning = errors.New("a reconciliation batch is already running")

// ReconcileService runs batch reconciliation jobs in the background.
// At most one batch runs at a time.
type ReconcileService struct {
	engine Batcher
	logger *slog.Logger

	// Job management
	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	batchLock sync.Mutex

	staleThreshold time.Duration
	maxDuration    time.Duration

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewReconcileService creates a new job service.
func NewReconcileService(engine Batcher, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		engine: engine,
		logger: logger.With("system", "jobs"),
		jobs:   make(map[string]*Job),

		staleThreshold: DefaultJobStaleThreshold,
		maxDuration:    DefaultJobMaxDuration,
	}
}

// SetStaleLimits overrides the thresholds used by Stale and the background
// cleanup. Call it before StartBackgroundCleanup.
func (s *ReconcileService) SetStaleLimits(staleThreshold, maxDuration time.Duration) {
	s.staleThreshold = staleThreshold
	s.maxDuration = maxDuration
}

// StartReconcile starts a batch job asynchronously and returns its id.
// The passed context is NOT used as the parent for the background job so
// that it outlives the HTTP request. Use CancelJob to stop it.
func (s *ReconcileService) StartReconcile(_ context.Context) (string, error) {
	if !s.batchLock.TryLock() {
		return "", ErrBatchRunning
	}

	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	job := &Job{
		ID:         jobID,
		Status:     StatusPending,
		StartedAt:  now,
		cancelFunc: cancel,
		Progress:   JobProgress{CurrentPhase: "pending", LastUpdate: now},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, jobID)

	s.logger.Info("reconcile job started", "job_id", jobID)
	return jobID, nil
}

// GetJob returns a snapshot of a job.
func (s *ReconcileService) GetJob(jobID string) (*Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snapshot := *job
	return &snapshot, nil
}

// ListActiveJobs returns snapshots of pending or running jobs.
func (s *ReconcileService) ListActiveJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	active := make([]*Job, 0)
	for _, job := range s.jobs {
		if job.active() {
			snapshot := *job
			active = append(active, &snapshot)
		}
	}
	return active
}

// ListJobs returns snapshots of all jobs, newest first.
func (s *ReconcileService) ListJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	sortNewestFirst(jobs)
	return jobs
}

// CancelJob asks a running job to stop. No new invoices are scheduled;
// invoices already being evaluated finish. The job reaches the cancelled
// status once the batch returns.
func (s *ReconcileService) CancelJob(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if !job.active() {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Progress.CurrentPhase = "cancelling"
	job.Progress.LastUpdate = time.Now()

	s.logger.Info("reconcile job cancel requested", "job_id", jobID)
	return nil
}

// Wait blocks until the job leaves the pending/running states or ctx is done.
func (s *ReconcileService) Wait(ctx context.Context, jobID string) (*Job, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := s.GetJob(jobID)
		if err != nil {
			return nil, err
		}
		if !job.active() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// runJob executes the batch in a background goroutine. The batch lock is
// released before the job reaches a terminal status.
func (s *ReconcileService) runJob(ctx context.Context, jobID string) {
	stats, err := s.runBatch(ctx, jobID)
	if err != nil {
		s.failJob(jobID, err)
		return
	}
	s.completeJob(jobID, stats)
}

func (s *ReconcileService) runBatch(ctx context.Context, jobID string) (stats *reconcile.Stats, err error) {
	defer s.batchLock.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	s.updateJob(jobID, func(job *Job) {
		job.Status = StatusRunning
		job.Progress.CurrentPhase = "reconciling"
	})

	return s.engine.ReconcileAllWith(ctx, reconcile.BatchOptions{
		JobID: jobID,
		Progress: func(done, total int) {
			s.updateJob(jobID, func(job *Job) {
				job.Progress.TotalInvoices = total
				job.Progress.ProcessedInvoices = done
			})
		},
	})
}

// updateJob applies fn to a job under the lock and bumps LastUpdate.
func (s *ReconcileService) updateJob(jobID string, fn func(job *Job)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.active() {
		fn(job)
		job.Progress.LastUpdate = time.Now()
	}
}

// completeJob marks a job as completed or cancelled with results.
func (s *ReconcileService) completeJob(jobID string, stats *reconcile.Stats) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return
	}

	now := time.Now()
	job.CompletedAt = &now
	job.Result = stats
	job.Progress.ProcessedInvoices = stats.Processed
	job.Progress.LastUpdate = now
	if stats.Cancelled {
		job.Status = StatusCancelled
		job.Progress.CurrentPhase = "cancelled"
	} else {
		job.Status = StatusCompleted
		job.Progress.CurrentPhase = "completed"
	}

	s.logger.Info("reconcile job finished",
		"job_id", jobID,
		"status", job.Status,
		"processed", stats.Processed,
		"auto_confirmed", stats.AutoConfirmed,
		"manual_review", stats.ManualReview,
		"no_match", stats.NoMatch,
		"errors", stats.Errors,
	)
}

// failJob marks a job as failed with an error.
func (s *ReconcileService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return
	}

	now := time.Now()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Error = err.Error()
	job.Progress.CurrentPhase = "failed"
	job.Progress.LastUpdate = now
	s.logger.Error("reconcile job failed", "job_id", jobID, "error", err)
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *ReconcileService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.active() {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconcile jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed cancels and fails jobs that have run longer than
// maxDuration or have not reported progress within staleThreshold.
// The batch lock is released when the job's goroutine returns.
func (s *ReconcileService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if !job.active() {
			continue
		}

		reason := ""
		switch {
		case now.Sub(job.StartedAt) > maxDuration:
			reason = fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, now.Sub(job.StartedAt).Round(time.Second))
		case now.Sub(job.Progress.LastUpdate) > staleThreshold:
			reason = fmt.Sprintf("no progress update for %v (threshold: %v)", now.Sub(job.Progress.LastUpdate).Round(time.Second), staleThreshold)
		default:
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = "job marked as stale: " + reason
		job.Progress.CurrentPhase = "failed"
		job.Progress.LastUpdate = now

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"reason", reason,
			"started_at", job.StartedAt,
		)
		marked++
	}

	return marked
}

// Stale reports whether a job is stale under the service's limits.
func (s *ReconcileService) Stale(jobID string) bool {
	return s.IsJobStale(jobID, s.staleThreshold, s.maxDuration)
}

// IsJobStale checks if a specific job is considered stale.
func (s *ReconcileService) IsJobStale(jobID string, staleThreshold, maxDuration time.Duration) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.active() {
		return false
	}

	now := time.Now()
	return now.Sub(job.StartedAt) > maxDuration || now.Sub(job.Progress.LastUpdate) > staleThreshold
}

// StartBackgroundCleanup periodically fails stale jobs and drops finished
// jobs older than a day. Call StopBackgroundCleanup to stop it.
func (s *ReconcileService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", s.staleThreshold,
			"max_duration", s.maxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				if n := s.MarkStaleJobsAsFailed(s.staleThreshold, s.maxDuration); n > 0 {
					s.logger.Info("marked stale jobs as failed", "count", n)
				}
				s.CleanupOldJobs(24 * time.Hour)
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine and waits
// for it to exit.
func (s *ReconcileService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}

	close(s.cleanupStop)
	<-s.cleanupDone
}

func sortNewestFirst(jobs []*Job) {
	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
}
