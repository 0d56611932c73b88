// Package reconcile is the reconciliation engine. It searches candidate
// transactions for an invoice, confirms and unlinks matches through the
// ledger, and runs batch reconciliation over every pending invoice.
//
// Example usage:
//
//	engine := reconcile.NewEngine(repo, reconcile.OptionsFromConfig(cfg))
//	result, err := engine.Search(ctx, invoiceID)
//	rec, err := engine.Confirm(ctx, reconcile.ConfirmRequest{InvoiceID: 1, TransactionID: 7})
//	stats, err := engine.ReconcileAll(ctx)
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/policy"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// InvoiceStore is the part of the invoice repository the engine reads.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id int64) (*model.Invoice, error)
	UnreconciledInvoices(ctx context.Context) ([]model.Invoice, error)
}

// TransactionStore is the part of the transaction repository the engine reads.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	CandidateTransactions(ctx context.Context, from, to time.Time, excludeReconciled bool) ([]model.Transaction, error)
}

// Ledger is the only writer of the reconciled flags.
type Ledger interface {
	Link(ctx context.Context, rec *model.Record) error
	Unlink(ctx context.Context, invoiceID int64) (*model.Record, error)
}

// Store combines everything the engine needs from storage.
type Store interface {
	InvoiceStore
	TransactionStore
	Ledger
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Matching   matcher.Config
	Thresholds policy.Thresholds
	Workers    int
	Runs       storage.RunRepository // optional, records batch run history
	Logger     *slog.Logger
}

// OptionsFromConfig maps the application config onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Matching: matcher.Config{
			DateWindowDays:  cfg.Matching.DateWindowDays,
			AmountTolerance: cfg.Matching.AmountTolerance,
			AmountFloor:     cfg.Matching.AmountFloor,
			SearchTolerance: cfg.Matching.SearchTolerance,
		},
		Thresholds: policy.Thresholds{
			AutoConfirm: cfg.Thresholds.AutoConfirm,
			Review:      cfg.Thresholds.Review,
		},
		Workers: cfg.Batch.Workers,
	}
}

// Engine runs searches, confirms and batches against a Store.
// It is safe for concurrent use; all writes go through the Ledger.
type Engine struct {
	store      Store
	runs       storage.RunRepository
	matcher    *matcher.Matcher
	thresholds policy.Thresholds
	workers    int
	logger     *slog.Logger
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts Options) *Engine {
	thresholds := opts.Thresholds
	if thresholds == (policy.Thresholds{}) {
		thresholds = policy.DefaultThresholds()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:      store,
		runs:       opts.Runs,
		matcher:    matcher.NewMatcher(opts.Matching),
		thresholds: thresholds,
		workers:    workers,
		logger:     logger.With("system", "reconcile"),
	}
}

// Thresholds returns the decision thresholds in effect.
func (e *Engine) Thresholds() policy.Thresholds {
	return e.thresholds
}

// MatcherConfig returns the effective matching configuration.
func (e *Engine) MatcherConfig() matcher.Config {
	return e.matcher.Config()
}

// SearchResult is the ranked candidate list for one invoice.
type SearchResult struct {
	InvoiceID  int64                  `json:"invoice_id"`
	Found      bool                   `json:"found"`
	Outcome    policy.Outcome         `json:"outcome"`
	Candidates []model.MatchCandidate `json:"candidates"`
	Skipped    int                    `json:"skipped,omitempty"`
}

// Search ranks the unreconciled transactions that could pay invoiceID.
// A reconciled invoice is not an error: the result has outcome
// already_reconciled and no candidates.
func (e *Engine) Search(ctx context.Context, invoiceID int64) (*SearchResult, error) {
	inv, err := e.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return e.search(ctx, inv, nil)
}

func (e *Engine) search(ctx context.Context, inv *model.Invoice, exclude map[int64]bool) (*SearchResult, error) {
	if inv.IsReconciled() {
		return &SearchResult{
			InvoiceID:  inv.ID,
			Outcome:    policy.OutcomeAlreadyReconciled,
			Candidates: []model.MatchCandidate{},
		}, nil
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	from, to := e.matcher.Window(inv)
	txs, err := e.store.CandidateTransactions(ctx, from, to, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate transactions for invoice %d: %w", inv.ID, err)
	}

	candidates, skipped := e.matcher.Candidates(inv, txs, exclude)
	for _, skipErr := range skipped {
		e.logger.Warn("Skipping invalid transaction",
			"invoice_id", inv.ID,
			"error", skipErr,
		)
	}

	return &SearchResult{
		InvoiceID:  inv.ID,
		Found:      len(candidates) > 0,
		Outcome:    e.thresholds.Decide(candidates),
		Candidates: candidates,
		Skipped:    len(skipped),
	}, nil
}
