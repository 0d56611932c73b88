// Package model holds the entities shared by the reconciliation engine:
// invoices, bank transactions, match candidates and reconciliation records.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which way money moves when an invoice is paid.
// An outgoing invoice is settled by a negative (outflow) transaction,
// an incoming invoice by a positive (inflow) one.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// InvoiceStatus is the reconciliation status of an invoice.
type InvoiceStatus string

const (
	StatusUnreconciled InvoiceStatus = "unreconciled"
	StatusReconciled   InvoiceStatus = "reconciled"
)

// Method records how a reconciliation was confirmed.
type Method string

const (
	MethodAuto           Method = "auto"
	MethodManual         Method = "manual"
	MethodManualOverride Method = "manual-override"
)

// Amounts holds the monetary breakdown of an invoice.
type Amounts struct {
	Net      decimal.Decimal `json:"net"`
	Tax      decimal.Decimal `json:"tax"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Gross    decimal.Decimal `json:"gross"`
	Currency string          `json:"currency"`
}

// Invoice is an accounting invoice awaiting (or holding) a bank match.
type Invoice struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	Supplier      string        `json:"supplier"`
	Date          time.Time     `json:"date"`
	DueDate       time.Time     `json:"due_date"`
	Direction     Direction     `json:"direction"`
	Amounts       Amounts       `json:"amounts"`
	Category      string        `json:"category,omitempty"`
	Status        InvoiceStatus `json:"status"`
	TransactionID *int64        `json:"transaction_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// IsReconciled reports whether the invoice is linked to a transaction.
func (i *Invoice) IsReconciled() bool {
	return i.Status == StatusReconciled
}

// Transaction is an imported bank statement line.
type Transaction struct {
	ID            int64           `json:"id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"` // positive = inflow, negative = outflow
	Vendor        string          `json:"vendor"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	SourceFile    string          `json:"source_file,omitempty"`
	ImportBatchID string          `json:"import_batch_id,omitempty"`
	IsReconciled  bool            `json:"is_reconciled"`
	InvoiceID     *int64          `json:"invoice_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MatchCandidate is a scored transaction for one invoice. It is computed on
// demand and never persisted.
type MatchCandidate struct {
	TransactionID      int64       `json:"transaction_id"`
	Transaction        Transaction `json:"transaction"`
	VendorSimilarity   float64     `json:"vendor_similarity"`
	AmountDiff         float64     `json:"amount_diff"`
	AmountDiffRelative float64     `json:"amount_diff_relative"`
	DateDiffDays       int         `json:"date_diff_days"`
	Confidence         float64     `json:"confidence"`
	Notes              []string    `json:"notes"`
}

// Record is the immutable proof that an invoice and a transaction were
// reconciled.
type Record struct {
	ID            int64     `json:"id"`
	InvoiceID     int64     `json:"invoice_id"`
	TransactionID int64     `json:"transaction_id"`
	Confidence    float64   `json:"confidence"`
	Method        Method    `json:"method"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// DayDiff returns the absolute number of calendar days between a and b,
// ignoring time of day.
func DayDiff(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
