package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/importer"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/policy"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

func TestPrintSearchResult(t *testing.T) {
	var buf bytes.Buffer
	result := &reconcile.SearchResult{
		InvoiceID: 3,
		Found:     true,
		Outcome:   policy.OutcomeReviewable,
		Candidates: []model.MatchCandidate{{
			TransactionID: 9,
			Transaction: model.Transaction{
				Date:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Amount: decimal.RequireFromString("-107.5"),
				Vendor: "ACME",
			},
			VendorSimilarity: 1,
			Confidence:       0.8,
			Notes:            []string{"amount differs by 7.50"},
		}},
		Skipped: 1,
	}

	PrintSearchResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "Invoice 3: reviewable")
	assert.Contains(t, out, "-107.50")
	assert.Contains(t, out, "0.800")
	assert.Contains(t, out, "amount differs by 7.50")
	assert.Contains(t, out, "1 invalid transactions skipped")
}

func TestPrintSearchResult_NoCandidates(t *testing.T) {
	var buf bytes.Buffer

	PrintSearchResult(&buf, &reconcile.SearchResult{InvoiceID: 1, Outcome: policy.OutcomeNoMatch})

	assert.Contains(t, buf.String(), "No candidates.")
}

func TestPrintBatchSummary(t *testing.T) {
	txID := int64(4)
	stats := &reconcile.Stats{
		Processed:     3,
		AutoConfirmed: 1,
		NoMatch:       1,
		Errors:        1,
		Cancelled:     true,
		Results: []reconcile.InvoiceResult{
			{InvoiceID: 1, Status: reconcile.ResultAutoConfirmed, TransactionID: &txID, Confidence: 0.99},
			{InvoiceID: 2, Status: reconcile.ResultNoMatch},
			{InvoiceID: 3, Status: reconcile.ResultError, Error: "boom"},
		},
	}

	t.Run("summary only", func(t *testing.T) {
		var buf bytes.Buffer
		PrintBatchSummary(&buf, stats, false)

		out := buf.String()
		assert.Contains(t, out, "Processed=3 AutoConfirmed=1 ManualReview=0 NoMatch=1 Errors=1")
		assert.Contains(t, out, "cancelled")
		assert.Contains(t, out, "invoice 3: boom")
		assert.NotContains(t, out, "INVOICE")
	})

	t.Run("verbose lists every invoice", func(t *testing.T) {
		var buf bytes.Buffer
		PrintBatchSummary(&buf, stats, true)

		out := buf.String()
		assert.Contains(t, out, "INVOICE")
		assert.Contains(t, out, "auto_confirmed")
	})
}

func TestPrintImportSummary(t *testing.T) {
	var buf bytes.Buffer
	batch := &importer.Batch{ID: "b-1", SourceFile: "releve.csv", Format: importer.FormatCSV, Skipped: 2,
		Transactions: make([]model.Transaction, 5)}

	PrintImportSummary(&buf, batch, &storage.SaveResult{Inserted: 4, Duplicates: 1})

	assert.Equal(t, "releve.csv (csv, batch b-1): parsed=5 inserted=4 duplicates=1 skipped=2\n", buf.String())
}

func TestPrintInvoices(t *testing.T) {
	var buf bytes.Buffer
	txID := int64(12)
	result := &storage.InvoiceListResult{
		Invoices: []model.Invoice{{
			ID:            1,
			Number:        "F-1",
			Supplier:      "Orange Business",
			Date:          time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			Direction:     model.DirectionOutgoing,
			Amounts:       model.Amounts{Gross: decimal.NewFromInt(120), Currency: "EUR"},
			Status:        model.StatusReconciled,
			TransactionID: &txID,
		}},
		TotalCount: 7,
	}

	PrintInvoices(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "Orange Business")
	assert.Contains(t, out, "120.00 EUR")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "Showing 1 of 7 invoices")
}

func TestNewBatchProgress_NotATerminal(t *testing.T) {
	var buf bytes.Buffer

	progress := NewBatchProgress(&buf)

	assert.Nil(t, progress)
	assert.Nil(t, progress.Func())
}
