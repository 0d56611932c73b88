package storage

import (
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// InvoiceFilters defines filters for listing invoices
type InvoiceFilters struct {
	Status model.InvoiceStatus // Filter by status (empty = all)
	Limit  int                 // Max results (0 = default 50)
	Offset int                 // Pagination offset
}

// InvoiceListResult contains paginated invoice results
type InvoiceListResult struct {
	Invoices   []model.Invoice `json:"invoices"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// TransactionFilters defines filters for listing transactions
type TransactionFilters struct {
	Reconciled *bool // nil = all
	Limit      int
	Offset     int
}

// TransactionListResult contains paginated transaction results
type TransactionListResult struct {
	Transactions []model.Transaction `json:"transactions"`
	TotalCount   int                 `json:"total_count"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// SaveResult reports what SaveTransactions stored
type SaveResult struct {
	Inserted   int     `json:"inserted"`
	Duplicates int     `json:"duplicates"`
	IDs        []int64 `json:"ids"`
}

// RunCounts are the aggregate counters of a batch run
type RunCounts struct {
	Processed     int  `json:"processed"`
	AutoConfirmed int  `json:"auto_confirmed"`
	ManualReview  int  `json:"manual_review"`
	NoMatch       int  `json:"no_match"`
	Errors        int  `json:"errors"`
	Cancelled     bool `json:"cancelled"`
}

// Run represents a batch reconciliation run record
type Run struct {
	ID          int64      `json:"id"`
	JobID       string     `json:"job_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      string     `json:"status"`
	RunCounts
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
