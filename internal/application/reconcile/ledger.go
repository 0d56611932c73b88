package reconcile

import (
	"context"
	"math"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// clientConfidenceSlack is how far a client-supplied confidence may drift
// from the recomputed one before it is logged.
const clientConfidenceSlack = 0.01

// ConfirmRequest asks the ledger to link an invoice to a transaction.
type ConfirmRequest struct {
	InvoiceID     int64
	TransactionID int64
	// Override allows confirming below the review threshold.
	Override bool
	// ClientConfidence is what the caller saw. It is only logged.
	ClientConfidence *float64
}

// Confirm re-scores the pair and links it. Failures, in check order:
// invoice not found, transaction not found, invoice already reconciled,
// transaction already reconciled, low confidence without override.
// A confirm that loses a race with another writer also returns a
// ConflictError.
func (e *Engine) Confirm(ctx context.Context, req ConfirmRequest) (*model.Record, error) {
	inv, err := e.store.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	tx, err := e.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if inv.IsReconciled() {
		return nil, model.NewConflict("invoice", inv.ID)
	}
	if tx.IsReconciled {
		return nil, model.NewConflict("transaction", tx.ID)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	candidate := e.matcher.Score(inv, tx)
	confidence := candidate.Confidence

	if req.ClientConfidence != nil && math.Abs(*req.ClientConfidence-confidence) > clientConfidenceSlack {
		e.logger.Warn("Client confidence differs from recomputed score",
			"invoice_id", inv.ID,
			"transaction_id", tx.ID,
			"client_confidence", *req.ClientConfidence,
			"confidence", confidence,
		)
	}

	if e.thresholds.RequiresOverride(confidence) && !req.Override {
		return nil, &model.LowConfidenceError{
			InvoiceID:     inv.ID,
			TransactionID: tx.ID,
			Confidence:    confidence,
			Threshold:     e.thresholds.Review,
		}
	}

	rec := &model.Record{
		InvoiceID:     inv.ID,
		TransactionID: tx.ID,
		Confidence:    confidence,
		Method:        e.thresholds.ConfirmMethod(confidence),
		ConfirmedAt:   time.Now().UTC(),
	}
	if err := e.store.Link(ctx, rec); err != nil {
		return nil, err
	}

	e.logger.Info("Confirmed reconciliation",
		"invoice_id", rec.InvoiceID,
		"transaction_id", rec.TransactionID,
		"confidence", rec.Confidence,
		"method", rec.Method,
	)
	return rec, nil
}

// Unlink reverses a confirm. It returns a NotFoundError when the invoice is
// unknown or not currently reconciled.
func (e *Engine) Unlink(ctx context.Context, invoiceID int64) error {
	rec, err := e.store.Unlink(ctx, invoiceID)
	if err != nil {
		return err
	}

	e.logger.Info("Unlinked reconciliation",
		"invoice_id", rec.InvoiceID,
		"transaction_id", rec.TransactionID,
		"method", rec.Method,
	)
	return nil
}
