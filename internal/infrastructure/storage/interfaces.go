package storage

import (
	"context"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing straightforward.
type Repository interface {
	InvoiceRepository
	TransactionRepository
	LedgerRepository
	RunRepository
	Close() error
}

// InvoiceRepository handles invoice persistence
type InvoiceRepository interface {
	// SaveInvoice inserts a new invoice and sets its ID
	SaveInvoice(ctx context.Context, inv *model.Invoice) error

	// GetInvoice retrieves an invoice by ID, or a NotFoundError
	GetInvoice(ctx context.Context, id int64) (*model.Invoice, error)

	// UnreconciledInvoices returns all unreconciled invoices ordered by date, then id
	UnreconciledInvoices(ctx context.Context) ([]model.Invoice, error)

	// ListInvoices returns invoices matching the given filters with pagination
	ListInvoices(ctx context.Context, filters InvoiceFilters) (*InvoiceListResult, error)

	// DeleteInvoice removes an unreconciled invoice. A reconciled invoice
	// returns a ConflictError and must be unlinked first.
	DeleteInvoice(ctx context.Context, id int64) error
}

// TransactionRepository handles bank transaction persistence
type TransactionRepository interface {
	// SaveTransactions inserts transactions, skipping duplicate external IDs
	SaveTransactions(ctx context.Context, txs []model.Transaction) (*SaveResult, error)

	// GetTransaction retrieves a transaction by ID, or a NotFoundError
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)

	// CandidateTransactions returns transactions dated within [from, to]
	CandidateTransactions(ctx context.Context, from, to time.Time, excludeReconciled bool) ([]model.Transaction, error)

	// ListTransactions returns transactions matching the given filters with pagination
	ListTransactions(ctx context.Context, filters TransactionFilters) (*TransactionListResult, error)

	// DeleteTransaction removes an unreconciled transaction. A reconciled
	// transaction returns a ConflictError and must be unlinked first.
	DeleteTransaction(ctx context.Context, id int64) error
}

// LedgerRepository owns the invoice/transaction link. It is the only writer
// of the reconciled flags.
type LedgerRepository interface {
	// Link atomically marks both entities reconciled and stores rec.
	// Returns a NotFoundError for unknown ids and a ConflictError when either
	// side is already reconciled. Exactly one of several racing calls for
	// the same invoice or transaction succeeds.
	Link(ctx context.Context, rec *model.Record) error

	// Unlink deletes the record for invoiceID and clears both flags.
	// Returns a NotFoundError when the invoice is unknown or not reconciled.
	Unlink(ctx context.Context, invoiceID int64) (*model.Record, error)

	// GetRecordByInvoice returns the record for a reconciled invoice
	GetRecordByInvoice(ctx context.Context, invoiceID int64) (*model.Record, error)
}

// RunRepository handles batch run tracking
type RunRepository interface {
	// StartRun records the start of a batch run and returns the run ID
	StartRun(ctx context.Context, jobID string) (int64, error)

	// CompleteRun records the outcome of a batch run
	CompleteRun(ctx context.Context, runID int64, counts RunCounts, status string) error

	// ListRuns returns recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, runID int64) (*Run, error)
}
