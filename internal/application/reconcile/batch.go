package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/policy"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// ResultStatus is what the batch did with one invoice.
type ResultStatus string

const (
	ResultAutoConfirmed ResultStatus = "auto_confirmed"
	ResultManualReview  ResultStatus = "manual_review"
	ResultNoMatch       ResultStatus = "no_match"
	ResultError         ResultStatus = "error"
)

// InvoiceResult is the batch outcome for one invoice.
type InvoiceResult struct {
	InvoiceID     int64          `json:"invoice_id"`
	Status        ResultStatus   `json:"status"`
	Outcome       policy.Outcome `json:"outcome,omitempty"`
	TransactionID *int64         `json:"transaction_id,omitempty"`
	Confidence    float64        `json:"confidence,omitempty"`
	Note          string         `json:"note,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Stats aggregates a batch run. Processed always equals
// AutoConfirmed + ManualReview + NoMatch + Errors.
type Stats struct {
	RunID         int64           `json:"run_id,omitempty"`
	Processed     int             `json:"processed"`
	AutoConfirmed int             `json:"auto_confirmed"`
	ManualReview  int             `json:"manual_review"`
	NoMatch       int             `json:"no_match"`
	Errors        int             `json:"errors"`
	Cancelled     bool            `json:"cancelled"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Results       []InvoiceResult `json:"results"`
}

func (s *Stats) add(r InvoiceResult) {
	s.Processed++
	switch r.Status {
	case ResultAutoConfirmed:
		s.AutoConfirmed++
	case ResultManualReview:
		s.ManualReview++
	case ResultNoMatch:
		s.NoMatch++
	default:
		s.Errors++
	}
	s.Results = append(s.Results, r)
}

func (s *Stats) counts() storage.RunCounts {
	return storage.RunCounts{
		Processed:     s.Processed,
		AutoConfirmed: s.AutoConfirmed,
		ManualReview:  s.ManualReview,
		NoMatch:       s.NoMatch,
		Errors:        s.Errors,
		Cancelled:     s.Cancelled,
	}
}

// BatchOptions tunes a single ReconcileAllWith call.
type BatchOptions struct {
	// JobID is stored on the run record when run history is enabled.
	JobID string
	// Progress is called after each invoice completes. Calls are serialized.
	Progress func(done, total int)
}

// ReconcileAll runs one batch pass over every unreconciled invoice.
func (e *Engine) ReconcileAll(ctx context.Context) (*Stats, error) {
	return e.ReconcileAllWith(ctx, BatchOptions{})
}

// ReconcileAllWith runs one batch pass with progress reporting.
//
// Invoices are evaluated on a bounded worker pool in invoice date then id
// order. Cancelling ctx stops scheduling new invoices; evaluations already
// running finish and may still commit. The returned stats cover completed
// work only and have Cancelled set. Only failing to list the invoices is
// returned as an error; per-invoice failures are recorded in the stats.
func (e *Engine) ReconcileAllWith(ctx context.Context, opts BatchOptions) (*Stats, error) {
	stats := &Stats{
		StartedAt: time.Now().UTC(),
		Results:   []InvoiceResult{},
	}
	if ctx.Err() != nil {
		stats.Cancelled = true
		stats.FinishedAt = time.Now().UTC()
		return stats, nil
	}

	// In-flight work must survive cancellation of the caller's context
	work := context.WithoutCancel(ctx)

	if e.runs != nil {
		runID, err := e.runs.StartRun(work, opts.JobID)
		if err != nil {
			e.logger.Warn("Failed to record run start", "error", err)
		} else {
			stats.RunID = runID
		}
	}

	invoices, err := e.store.UnreconciledInvoices(work)
	if err != nil {
		e.completeRun(work, stats.RunID, storage.RunCounts{}, storage.RunStatusFailed)
		return nil, fmt.Errorf("failed to load unreconciled invoices: %w", err)
	}
	slices.SortStableFunc(invoices, func(a, b model.Invoice) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})

	e.logger.Info("Starting batch reconciliation",
		"invoices", len(invoices),
		"workers", e.workers,
		"job_id", opts.JobID,
	)

	var (
		mu        sync.Mutex
		done      int
		cancelled atomic.Bool
		results   = make([]*InvoiceResult, len(invoices))
		total     = len(invoices)
	)

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range invoices {
		if ctx.Err() != nil {
			cancelled.Store(true)
			break
		}
		inv := &invoices[i]
		g.Go(func() error {
			// Scheduled before the cancel but not yet started
			if ctx.Err() != nil {
				cancelled.Store(true)
				return nil
			}

			res := e.processInvoice(work, inv)

			mu.Lock()
			defer mu.Unlock()
			results[i] = &res
			done++
			if opts.Progress != nil {
				opts.Progress(done, total)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			stats.add(*r)
		}
	}
	stats.Cancelled = cancelled.Load()
	stats.FinishedAt = time.Now().UTC()

	status := storage.RunStatusCompleted
	if stats.Cancelled {
		status = storage.RunStatusCancelled
	}
	e.completeRun(work, stats.RunID, stats.counts(), status)

	e.logger.Info("Batch reconciliation finished",
		"processed", stats.Processed,
		"auto_confirmed", stats.AutoConfirmed,
		"manual_review", stats.ManualReview,
		"no_match", stats.NoMatch,
		"errors", stats.Errors,
		"cancelled", stats.Cancelled,
		"duration", stats.FinishedAt.Sub(stats.StartedAt),
	)
	return stats, nil
}

// completeRun records the outcome of a run started by ReconcileAllWith.
// Failures are logged only; run history never fails a batch.
func (e *Engine) completeRun(ctx context.Context, runID int64, counts storage.RunCounts, status string) {
	if e.runs == nil || runID == 0 {
		return
	}
	if err := e.runs.CompleteRun(ctx, runID, counts, status); err != nil {
		e.logger.Warn("Failed to record run completion", "run_id", runID, "status", status, "error", err)
	}
}

// processInvoice evaluates one invoice and commits it when eligible.
// It never returns an error or panics; failures become error results.
func (e *Engine) processInvoice(ctx context.Context, inv *model.Invoice) (res InvoiceResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic while reconciling invoice", "invoice_id", inv.ID, "panic", r)
			res = InvoiceResult{
				InvoiceID: inv.ID,
				Status:    ResultError,
				Error:     fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	exclude := make(map[int64]bool)
	for {
		result, err := e.search(ctx, inv, exclude)
		if err != nil {
			e.logger.Warn("Failed to search invoice", "invoice_id", inv.ID, "error", err)
			return InvoiceResult{InvoiceID: inv.ID, Status: ResultError, Error: err.Error()}
		}

		res = InvoiceResult{InvoiceID: inv.ID, Outcome: result.Outcome}
		if len(result.Candidates) > 0 {
			best := result.Candidates[0]
			res.TransactionID = &best.TransactionID
			res.Confidence = best.Confidence
		}

		switch result.Outcome {
		case policy.OutcomeNoMatch:
			if len(exclude) > 0 {
				res.Status = ResultManualReview
				res.Note = "auto-eligible candidates were claimed by other invoices"
				return res
			}
			res.Status = ResultNoMatch
			return res

		case policy.OutcomeReviewable, policy.OutcomeLowConfidence:
			res.Status = ResultManualReview
			return res

		case policy.OutcomeAutoConfirmEligible:
			best := result.Candidates[0]
			rec := &model.Record{
				InvoiceID:     inv.ID,
				TransactionID: best.TransactionID,
				Confidence:    best.Confidence,
				Method:        model.MethodAuto,
				ConfirmedAt:   time.Now().UTC(),
			}
			err := e.store.Link(ctx, rec)
			if err == nil {
				res.Status = ResultAutoConfirmed
				e.logger.Debug("Auto-confirmed invoice",
					"invoice_id", inv.ID,
					"transaction_id", best.TransactionID,
					"confidence", best.Confidence,
				)
				return res
			}

			var conflict *model.ConflictError
			if !errors.As(err, &conflict) {
				e.logger.Warn("Failed to link invoice", "invoice_id", inv.ID, "error", err)
				return InvoiceResult{InvoiceID: inv.ID, Status: ResultError, Outcome: result.Outcome, Error: err.Error()}
			}
			if conflict.Entity == "transaction" {
				e.logger.Debug("Lost transaction to another invoice, searching again",
					"invoice_id", inv.ID,
					"transaction_id", best.TransactionID,
				)
				exclude[best.TransactionID] = true
				continue
			}

			// The invoice itself was reconciled by a concurrent confirm
			res.Status = ResultManualReview
			res.Note = conflict.Error()
			return res

		default:
			res.Status = ResultManualReview
			return res
		}
	}
}
