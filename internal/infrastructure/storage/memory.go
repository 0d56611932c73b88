package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// MemoryStore is an in-memory implementation of Repository.
// It stores all data in maps guarded by one mutex, which also makes Link
// and Unlink atomic. Tests use its hooks to inject errors and races.
type MemoryStore struct {
	mu           sync.Mutex
	invoices     map[int64]*model.Invoice
	transactions map[int64]*model.Transaction
	records      map[int64]*model.Record // Keyed by invoice_id
	runs         map[int64]*Run
	externalIDs  map[string]int64
	nextInvoice  int64
	nextTx       int64
	nextRecord   int64
	nextRun      int64
	linkCalls    int

	// Error injection for testing error paths
	SaveInvoiceErr      error
	SaveTransactionsErr error
	UnreconciledErr     error
	StartRunErr         error
	CompleteRunErr      error
	LinkErr             error

	// OnCandidates runs before CandidateTransactions reads data. A non-nil
	// error is returned to the caller. It may panic.
	OnCandidates func(from, to time.Time) error

	// BeforeLink runs before Link takes the lock, so it may call back into
	// the store to simulate a concurrent writer.
	BeforeLink func(rec *model.Record)
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices:     make(map[int64]*model.Invoice),
		transactions: make(map[int64]*model.Transaction),
		records:      make(map[int64]*model.Record),
		runs:         make(map[int64]*Run),
		externalIDs:  make(map[string]int64),
		nextInvoice:  1,
		nextTx:       1,
		nextRecord:   1,
		nextRun:      1,
	}
}

// Compile-time check that MemoryStore implements Repository
var _ Repository = (*MemoryStore)(nil)

// Close does nothing for the in-memory store
func (m *MemoryStore) Close() error {
	return nil
}

// LinkCalls returns how many times Link was called
func (m *MemoryStore) LinkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkCalls
}

// SaveInvoice stores a copy of inv as unreconciled and sets its ID
func (m *MemoryStore) SaveInvoice(_ context.Context, inv *model.Invoice) error {
	if m.SaveInvoiceErr != nil {
		return m.SaveInvoiceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inv.ID = m.nextInvoice
	m.nextInvoice++
	inv.Status = model.StatusUnreconciled
	inv.TransactionID = nil
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Amounts.Currency == "" {
		inv.Amounts.Currency = "EUR"
	}

	copied := *inv
	m.invoices[inv.ID] = &copied
	return nil
}

// GetInvoice returns a copy of the invoice
func (m *MemoryStore) GetInvoice(_ context.Context, id int64) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invoices[id]
	if !ok {
		return nil, model.NewNotFound("invoice", id)
	}
	return copyInvoice(inv), nil
}

// UnreconciledInvoices returns unreconciled invoices ordered by date, then id
func (m *MemoryStore) UnreconciledInvoices(_ context.Context) ([]model.Invoice, error) {
	if m.UnreconciledErr != nil {
		return nil, m.UnreconciledErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if inv.Status == model.StatusUnreconciled {
			out = append(out, *copyInvoice(inv))
		}
	}
	slices.SortFunc(out, func(a, b model.Invoice) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// ListInvoices returns invoices matching the given filters, newest first
func (m *MemoryStore) ListInvoices(_ context.Context, filters InvoiceFilters) (*InvoiceListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matching []model.Invoice
	for _, inv := range m.invoices {
		if filters.Status != "" && inv.Status != filters.Status {
			continue
		}
		matching = append(matching, *copyInvoice(inv))
	}
	slices.SortFunc(matching, func(a, b model.Invoice) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	limit, offset := normalizePage(filters.Limit, filters.Offset)
	page := paginate(matching, limit, offset)
	return &InvoiceListResult{Invoices: page, TotalCount: len(matching), Limit: limit, Offset: offset}, nil
}

// SaveTransactions stores copies of txs, skipping duplicate external IDs
func (m *MemoryStore) SaveTransactions(_ context.Context, txs []model.Transaction) (*SaveResult, error) {
	if m.SaveTransactionsErr != nil {
		return nil, m.SaveTransactionsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &SaveResult{IDs: make([]int64, 0, len(txs))}
	for i := range txs {
		tx := &txs[i]
		if tx.ExternalID != "" {
			if _, dup := m.externalIDs[tx.ExternalID]; dup {
				result.Duplicates++
				continue
			}
		}

		tx.ID = m.nextTx
		m.nextTx++
		tx.IsReconciled = false
		tx.InvoiceID = nil
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now().UTC()
		}

		copied := *tx
		m.transactions[tx.ID] = &copied
		if tx.ExternalID != "" {
			m.externalIDs[tx.ExternalID] = tx.ID
		}
		result.Inserted++
		result.IDs = append(result.IDs, tx.ID)
	}
	return result, nil
}

// GetTransaction returns a copy of the transaction
func (m *MemoryStore) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, model.NewNotFound("transaction", id)
	}
	return copyTransaction(tx), nil
}

// CandidateTransactions returns transactions dated within [from, to] by calendar day
func (m *MemoryStore) CandidateTransactions(_ context.Context, from, to time.Time, excludeReconciled bool) ([]model.Transaction, error) {
	if m.OnCandidates != nil {
		if err := m.OnCandidates(from, to); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	lo, hi := from.Format(dateLayout), to.Format(dateLayout)
	out := make([]model.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.Date.IsZero() {
			continue
		}
		if d := tx.Date.Format(dateLayout); d < lo || d > hi {
			continue
		}
		if excludeReconciled && tx.IsReconciled {
			continue
		}
		out = append(out, *copyTransaction(tx))
	}
	slices.SortFunc(out, func(a, b model.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// ListTransactions returns transactions matching the given filters, newest first
func (m *MemoryStore) ListTransactions(_ context.Context, filters TransactionFilters) (*TransactionListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matching []model.Transaction
	for _, tx := range m.transactions {
		if filters.Reconciled != nil && tx.IsReconciled != *filters.Reconciled {
			continue
		}
		matching = append(matching, *copyTransaction(tx))
	}
	slices.SortFunc(matching, func(a, b model.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	limit, offset := normalizePage(filters.Limit, filters.Offset)
	page := paginate(matching, limit, offset)
	return &TransactionListResult{Transactions: page, TotalCount: len(matching), Limit: limit, Offset: offset}, nil
}

// Link flips both flags under the store lock
func (m *MemoryStore) Link(_ context.Context, rec *model.Record) error {
	if m.BeforeLink != nil {
		m.BeforeLink(rec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkCalls++

	if m.LinkErr != nil {
		return m.LinkErr
	}

	inv, ok := m.invoices[rec.InvoiceID]
	if !ok {
		return model.NewNotFound("invoice", rec.InvoiceID)
	}
	if inv.Status == model.StatusReconciled {
		return model.NewConflict("invoice", rec.InvoiceID)
	}
	tx, ok := m.transactions[rec.TransactionID]
	if !ok {
		return model.NewNotFound("transaction", rec.TransactionID)
	}
	if tx.IsReconciled {
		return model.NewConflict("transaction", rec.TransactionID)
	}

	if rec.ConfirmedAt.IsZero() {
		rec.ConfirmedAt = time.Now().UTC()
	}
	rec.ID = m.nextRecord
	m.nextRecord++

	txID, invID := tx.ID, inv.ID
	inv.Status = model.StatusReconciled
	inv.TransactionID = &txID
	tx.IsReconciled = true
	tx.InvoiceID = &invID

	copied := *rec
	m.records[rec.InvoiceID] = &copied
	return nil
}

// Unlink reverses a Link under the store lock
func (m *MemoryStore) Unlink(_ context.Context, invoiceID int64) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, model.NewNotFound("invoice", invoiceID)
	}
	rec, ok := m.records[invoiceID]
	if !ok {
		return nil, model.NewNotFound("reconciliation for invoice", invoiceID)
	}

	delete(m.records, invoiceID)
	inv.Status = model.StatusUnreconciled
	inv.TransactionID = nil
	if tx, ok := m.transactions[rec.TransactionID]; ok {
		tx.IsReconciled = false
		tx.InvoiceID = nil
	}

	copied := *rec
	return &copied, nil
}

// DeleteInvoice removes an unreconciled invoice
func (m *MemoryStore) DeleteInvoice(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invoices[id]
	if !ok {
		return model.NewNotFound("invoice", id)
	}
	if inv.Status == model.StatusReconciled {
		return &model.ConflictError{Entity: "invoice", ID: id, Reason: "is reconciled, unlink it before deleting"}
	}
	delete(m.invoices, id)
	return nil
}

// DeleteTransaction removes an unreconciled transaction and frees its
// external ID for a later import
func (m *MemoryStore) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return model.NewNotFound("transaction", id)
	}
	if tx.IsReconciled {
		return &model.ConflictError{Entity: "transaction", ID: id, Reason: "is reconciled, unlink it before deleting"}
	}
	if tx.ExternalID != "" {
		delete(m.externalIDs, tx.ExternalID)
	}
	delete(m.transactions, id)
	return nil
}

// GetRecordByInvoice returns a copy of the record for invoiceID
func (m *MemoryStore) GetRecordByInvoice(_ context.Context, invoiceID int64) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[invoiceID]
	if !ok {
		return nil, model.NewNotFound("reconciliation for invoice", invoiceID)
	}
	copied := *rec
	return &copied, nil
}

// StartRun creates a new run and returns its ID
func (m *MemoryStore) StartRun(_ context.Context, jobID string) (int64, error) {
	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextRun
	m.nextRun++
	m.runs[id] = &Run{ID: id, JobID: jobID, StartedAt: time.Now().UTC(), Status: RunStatusRunning}
	return id, nil
}

// CompleteRun stores the outcome of a run
func (m *MemoryStore) CompleteRun(_ context.Context, runID int64, counts RunCounts, status string) error {
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return model.NewNotFound("run", runID)
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.RunCounts = counts
	run.Status = status
	return nil
}

// ListRuns returns recent runs, newest first
func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	slices.SortFunc(runs, func(a, b Run) int { return cmp.Compare(b.ID, a.ID) })

	limit, _ = normalizePage(limit, 0)
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun returns a copy of a run
func (m *MemoryStore) GetRun(_ context.Context, runID int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, model.NewNotFound("run", runID)
	}
	copied := *run
	return &copied, nil
}

func copyInvoice(inv *model.Invoice) *model.Invoice {
	c := *inv
	if inv.TransactionID != nil {
		id := *inv.TransactionID
		c.TransactionID = &id
	}
	return &c
}

func copyTransaction(tx *model.Transaction) *model.Transaction {
	c := *tx
	if tx.InvoiceID != nil {
		id := *tx.InvoiceID
		c.InvoiceID = &id
	}
	return &c
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
