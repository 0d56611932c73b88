package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Storage provides SQLite database access for invoices, transactions and
// reconciliation records. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database and runs
// pending migrations. Use ":memory:" for a throwaway database.
func NewStorage(dbPath string) (*Storage, error) {
	dsn := dbPath
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers; the ledger's guarded updates stay atomic.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ================================================================
// INVOICES
// ================================================================

const invoiceColumns = `id, number, supplier, invoice_date, due_date, direction,
	amount_net, amount_tax, tax_rate, amount_gross, currency, category,
	status, transaction_id, created_at`

// SaveInvoice inserts a new unreconciled invoice and sets its ID
func (s *Storage) SaveInvoice(ctx context.Context, inv *model.Invoice) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Amounts.Currency == "" {
		inv.Amounts.Currency = "EUR"
	}
	inv.Status = model.StatusUnreconciled
	inv.TransactionID = nil

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices
		(number, supplier, invoice_date, due_date, direction,
		 amount_net, amount_tax, tax_rate, amount_gross, currency, category,
		 status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number,
		inv.Supplier,
		formatDate(inv.Date),
		formatDate(inv.DueDate),
		string(inv.Direction),
		inv.Amounts.Net,
		inv.Amounts.Tax,
		inv.Amounts.TaxRate,
		inv.Amounts.Gross,
		inv.Amounts.Currency,
		inv.Category,
		string(inv.Status),
		inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	inv.ID, err = res.LastInsertId()
	return err
}

// GetInvoice retrieves an invoice by ID
func (s *Storage) GetInvoice(ctx context.Context, id int64) (*model.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFound("invoice", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice %d: %w", id, err)
	}
	return inv, nil
}

// UnreconciledInvoices returns all unreconciled invoices ordered by date, then id
func (s *Storage) UnreconciledInvoices(ctx context.Context) ([]model.Invoice, error) {
	return s.queryInvoices(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status = 'unreconciled'
		ORDER BY invoice_date ASC, id ASC`)
}

// ListInvoices returns invoices matching the given filters, newest first
func (s *Storage) ListInvoices(ctx context.Context, filters InvoiceFilters) (*InvoiceListResult, error) {
	limit, offset := normalizePage(filters.Limit, filters.Offset)

	where := ""
	var args []any
	if filters.Status != "" {
		where = " WHERE status = ?"
		args = append(args, string(filters.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	invoices, err := s.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices`+where+` ORDER BY invoice_date DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}

	return &InvoiceListResult{
		Invoices:   invoices,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (s *Storage) queryInvoices(ctx context.Context, query string, args ...any) ([]model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	invoices := make([]model.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var (
		inv       model.Invoice
		date, due sql.NullString
		direction string
		status    string
		gross     decimal.NullDecimal
		txID      sql.NullInt64
	)

	err := row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.Supplier,
		&date,
		&due,
		&direction,
		&inv.Amounts.Net,
		&inv.Amounts.Tax,
		&inv.Amounts.TaxRate,
		&gross,
		&inv.Amounts.Currency,
		&inv.Category,
		&status,
		&txID,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if inv.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseDate(due); err != nil {
		return nil, err
	}
	inv.Direction = model.Direction(direction)
	inv.Status = model.InvoiceStatus(status)
	if gross.Valid {
		inv.Amounts.Gross = gross.Decimal
	}
	if txID.Valid {
		inv.TransactionID = &txID.Int64
	}
	return &inv, nil
}

// ================================================================
// TRANSACTIONS
// ================================================================

const transactionColumns = `id, tx_date, amount, vendor, description, category, external_id,
	source_file, import_batch_id, is_reconciled, invoice_id, created_at`

// SaveTransactions inserts transactions in a single database transaction.
// Rows whose external ID already exists are skipped and counted as duplicates.
func (s *Storage) SaveTransactions(ctx context.Context, txs []model.Transaction) (*SaveResult, error) {
	result := &SaveResult{IDs: make([]int64, 0, len(txs))}
	if len(txs) == 0 {
		return result, nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
		(tx_date, amount, vendor, description, category, external_id, source_file, import_batch_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for i := range txs {
		tx := &txs[i]
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}

		res, err := stmt.ExecContext(ctx,
			formatDate(tx.Date),
			tx.Amount,
			tx.Vendor,
			tx.Description,
			tx.Category,
			sql.NullString{String: tx.ExternalID, Valid: tx.ExternalID != ""},
			tx.SourceFile,
			tx.ImportBatchID,
			tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction %d of %d: %w", i+1, len(txs), err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			result.Duplicates++
			continue
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		tx.ID = id
		tx.IsReconciled = false
		tx.InvoiceID = nil
		result.Inserted++
		result.IDs = append(result.IDs, id)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return result, nil
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFound("transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %d: %w", id, err)
	}
	return tx, nil
}

// CandidateTransactions returns transactions dated within [from, to] by calendar day
func (s *Storage) CandidateTransactions(ctx context.Context, from, to time.Time, excludeReconciled bool) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE tx_date >= ? AND tx_date <= ?`
	if excludeReconciled {
		query += ` AND is_reconciled = 0`
	}
	query += ` ORDER BY tx_date ASC, id ASC`

	return s.queryTransactions(ctx, query, from.Format(dateLayout), to.Format(dateLayout))
}

// ListTransactions returns transactions matching the given filters, newest first
func (s *Storage) ListTransactions(ctx context.Context, filters TransactionFilters) (*TransactionListResult, error) {
	limit, offset := normalizePage(filters.Limit, filters.Offset)

	where := ""
	var args []any
	if filters.Reconciled != nil {
		where = " WHERE is_reconciled = ?"
		args = append(args, *filters.Reconciled)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	txs, err := s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+where+` ORDER BY tx_date DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}

	return &TransactionListResult{
		Transactions: txs,
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

func (s *Storage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txs := make([]model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		tx         model.Transaction
		date       sql.NullString
		amount     decimal.NullDecimal
		externalID sql.NullString
		invoiceID  sql.NullInt64
	)

	err := row.Scan(
		&tx.ID,
		&date,
		&amount,
		&tx.Vendor,
		&tx.Description,
		&tx.Category,
		&externalID,
		&tx.SourceFile,
		&tx.ImportBatchID,
		&tx.IsReconciled,
		&invoiceID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tx.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if amount.Valid {
		tx.Amount = amount.Decimal
	}
	tx.ExternalID = externalID.String
	if invoiceID.Valid {
		tx.InvoiceID = &invoiceID.Int64
	}
	return &tx, nil
}

// ================================================================
// LEDGER
// ================================================================

// Link atomically flips both reconciled flags and inserts the record.
// Each flag is claimed with a guarded UPDATE so a concurrent Link that got
// there first leaves zero rows affected here.
func (s *Storage) Link(ctx context.Context, rec *model.Record) error {
	if rec.ConfirmedAt.IsZero() {
		rec.ConfirmedAt = time.Now().UTC()
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE invoices SET status = 'reconciled', transaction_id = ?
		WHERE id = ? AND status = 'unreconciled'`,
		rec.TransactionID, rec.InvoiceID)
	if err != nil {
		return fmt.Errorf("failed to claim invoice %d: %w", rec.InvoiceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return claimFailure(ctx, dbTx, "invoices", "invoice", rec.InvoiceID)
	}

	res, err = dbTx.ExecContext(ctx, `
		UPDATE transactions SET is_reconciled = 1, invoice_id = ?
		WHERE id = ? AND is_reconciled = 0`,
		rec.InvoiceID, rec.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to claim transaction %d: %w", rec.TransactionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return claimFailure(ctx, dbTx, "transactions", "transaction", rec.TransactionID)
	}

	res, err = dbTx.ExecContext(ctx, `
		INSERT INTO reconciliation_records (invoice_id, transaction_id, confidence, method, confirmed_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.InvoiceID, rec.TransactionID, rec.Confidence, string(rec.Method), rec.ConfirmedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &model.ConflictError{Entity: "invoice", ID: rec.InvoiceID, Reason: "reconciliation record already exists"}
		}
		return fmt.Errorf("failed to insert reconciliation record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	rec.ID = id
	return nil
}

// claimFailure tells a missing row apart from one that is already reconciled.
func claimFailure(ctx context.Context, dbTx *sql.Tx, table, entity string, id int64) error {
	var exists int
	if err := dbTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check %s %d: %w", entity, id, err)
	}
	if exists == 0 {
		return model.NewNotFound(entity, id)
	}
	return model.NewConflict(entity, id)
}

// Unlink reverses a Link for invoiceID
func (s *Storage) Unlink(ctx context.Context, invoiceID int64) (*model.Record, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	rec, err := scanRecord(dbTx.QueryRowContext(ctx, `
		SELECT id, invoice_id, transaction_id, confidence, method, confirmed_at
		FROM reconciliation_records WHERE invoice_id = ?`, invoiceID))
	if errors.Is(err, sql.ErrNoRows) {
		var exists int
		if err := dbTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices WHERE id = ?`, invoiceID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check invoice %d: %w", invoiceID, err)
		}
		if exists == 0 {
			return nil, model.NewNotFound("invoice", invoiceID)
		}
		return nil, model.NewNotFound("reconciliation for invoice", invoiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciliation for invoice %d: %w", invoiceID, err)
	}

	statements := []struct {
		query string
		arg   int64
	}{
		{`DELETE FROM reconciliation_records WHERE id = ?`, rec.ID},
		{`UPDATE invoices SET status = 'unreconciled', transaction_id = NULL WHERE id = ?`, rec.InvoiceID},
		{`UPDATE transactions SET is_reconciled = 0, invoice_id = NULL WHERE id = ?`, rec.TransactionID},
	}
	for _, st := range statements {
		if _, err := dbTx.ExecContext(ctx, st.query, st.arg); err != nil {
			return nil, fmt.Errorf("failed to unlink invoice %d: %w", invoiceID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit unlink: %w", err)
	}
	return rec, nil
}

// DeleteInvoice removes an invoice that is not reconciled
func (s *Storage) DeleteInvoice(ctx context.Context, id int64) error {
	return s.deleteUnreconciled(ctx,
		`DELETE FROM invoices WHERE id = ? AND status = 'unreconciled'`,
		"invoices", "invoice", id)
}

// DeleteTransaction removes a transaction that is not reconciled
func (s *Storage) DeleteTransaction(ctx context.Context, id int64) error {
	return s.deleteUnreconciled(ctx,
		`DELETE FROM transactions WHERE id = ? AND is_reconciled = 0`,
		"transactions", "transaction", id)
}

// deleteUnreconciled runs a guarded DELETE so a concurrent Link either
// lands first (conflict) or finds the row gone (not found).
func (s *Storage) deleteUnreconciled(ctx context.Context, query, table, entity string, id int64) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	res, err := dbTx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", entity, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := claimFailure(ctx, dbTx, table, entity, id); err != nil {
			var conflict *model.ConflictError
			if errors.As(err, &conflict) {
				conflict.Reason = "is reconciled, unlink it before deleting"
			}
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// GetRecordByInvoice returns the reconciliation record for an invoice
func (s *Storage) GetRecordByInvoice(ctx context.Context, invoiceID int64) (*model.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `
		SELECT id, invoice_id, transaction_id, confidence, method, confirmed_at
		FROM reconciliation_records WHERE invoice_id = ?`, invoiceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFound("reconciliation for invoice", invoiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciliation for invoice %d: %w", invoiceID, err)
	}
	return rec, nil
}

func scanRecord(row rowScanner) (*model.Record, error) {
	var rec model.Record
	var method string
	if err := row.Scan(&rec.ID, &rec.InvoiceID, &rec.TransactionID, &rec.Confidence, &method, &rec.ConfirmedAt); err != nil {
		return nil, err
	}
	rec.Method = model.Method(method)
	return &rec, nil
}

// ================================================================
// RUNS
// ================================================================

// StartRun records the start of a batch run and returns the run ID
func (s *Storage) StartRun(ctx context.Context, jobID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (job_id, started_at, status)
		VALUES (?, ?, ?)`,
		jobID, time.Now().UTC(), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return res.LastInsertId()
}

// CompleteRun records the outcome of a batch run
func (s *Storage) CompleteRun(ctx context.Context, runID int64, counts RunCounts, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reconciliation_runs
		SET completed_at = ?, processed = ?, auto_confirmed = ?, manual_review = ?,
		    no_match = ?, errors = ?, cancelled = ?, status = ?
		WHERE id = ?`,
		time.Now().UTC(),
		counts.Processed,
		counts.AutoConfirmed,
		counts.ManualReview,
		counts.NoMatch,
		counts.Errors,
		counts.Cancelled,
		status,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %d: %w", runID, err)
	}
	return nil
}

const runColumns = `id, job_id, started_at, completed_at, processed, auto_confirmed,
	manual_review, no_match, errors, cancelled, status`

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	limit, _ = normalizePage(limit, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM reconciliation_runs
		ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, runID int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reconciliation_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFound("run", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	return run, nil
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var completed sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.JobID,
		&run.StartedAt,
		&completed,
		&run.Processed,
		&run.AutoConfirmed,
		&run.ManualReview,
		&run.NoMatch,
		&run.Errors,
		&run.Cancelled,
		&run.Status,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		run.CompletedAt = &completed.Time
	}
	return &run, nil
}

// ================================================================
// HELPERS
// ================================================================

func formatDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func parseDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s.String, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
