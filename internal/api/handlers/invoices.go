package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/importer"
	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// InvoicesHandler handles invoice and reconciliation HTTP requests.
type InvoicesHandler struct {
	*Base
	engine *reconcile.Engine
	logger *slog.Logger
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(repo storage.Repository, engine *reconcile.Engine, logger *slog.Logger) *InvoicesHandler {
	return &InvoicesHandler{
		Base:   NewBase(repo),
		engine: engine,
		logger: logger,
	}
}

// List handles GET /api/invoices - returns paginated list of invoices.
func (h *InvoicesHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.InvoiceStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.StatusReconciled && status != model.StatusUnreconciled {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("status must be reconciled or unreconciled"))
		return
	}

	filters := storage.InvoiceFilters{
		Status: status,
		Limit:  ParseIntParam(r, "limit", 50),
		Offset: ParseIntParam(r, "offset", 0),
	}

	result, err := h.repo.ListInvoices(r.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list invoices", "error", err)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.InvoiceListResponse{
		Invoices:   make([]dto.InvoiceResponse, 0, len(result.Invoices)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for i := range result.Invoices {
		response.Invoices = append(response.Invoices, toInvoiceResponse(&result.Invoices[i]))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Create handles POST /api/invoices - stores one extracted invoice.
func (h *InvoicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload importer.InvoicePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	inv, err := payload.ToInvoice()
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	if err := h.repo.SaveInvoice(r.Context(), inv); err != nil {
		h.logger.Error("failed to save invoice", "error", err)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

// Get handles GET /api/invoices/{id} - returns a single invoice by ID.
func (h *InvoicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid invoice ID"))
		return
	}

	inv, err := h.repo.GetInvoice(r.Context(), id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

// Candidates handles GET /api/invoices/{id}/candidates - ranks the
// transactions that could settle the invoice.
func (h *InvoicesHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid invoice ID"))
		return
	}

	result, err := h.engine.Search(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "search failed", id, err)
		return
	}

	response := dto.SearchResponse{
		InvoiceID:  result.InvoiceID,
		Found:      result.Found,
		Outcome:    string(result.Outcome),
		Candidates: make([]dto.CandidateResponse, 0, len(result.Candidates)),
		Skipped:    result.Skipped,
	}
	for _, c := range result.Candidates {
		response.Candidates = append(response.Candidates, toCandidateResponse(c))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Confirm handles POST /api/invoices/{id}/confirm - links the invoice to a
// transaction.
func (h *InvoicesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid invoice ID"))
		return
	}

	var req dto.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.TransactionID <= 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction_id is required"))
		return
	}

	rec, err := h.engine.Confirm(r.Context(), reconcile.ConfirmRequest{
		InvoiceID:        id,
		TransactionID:    req.TransactionID,
		Override:         req.Override,
		ClientConfidence: req.Confidence,
	})
	if err != nil {
		h.writeEngineError(w, "confirm failed", id, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// Unlink handles DELETE /api/invoices/{id}/reconciliation.
func (h *InvoicesHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid invoice ID"))
		return
	}

	if err := h.engine.Unlink(r.Context(), id); err != nil {
		h.writeEngineError(w, "unlink failed", id, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Reconciliation removed",
	})
}

// Delete handles DELETE /api/invoices/{id}. Reconciled invoices are
// rejected with 409 until they are unlinked.
func (h *InvoicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid invoice ID"))
		return
	}

	if err := h.repo.DeleteInvoice(r.Context(), id); err != nil {
		h.writeEngineError(w, "delete invoice failed", id, err)
		return
	}

	h.logger.Info("Deleted invoice", "invoice_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError logs unexpected failures before mapping them.
func (h *InvoicesHandler) writeEngineError(w http.ResponseWriter, msg string, invoiceID int64, err error) {
	if !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrConflict) &&
		!errors.Is(err, model.ErrLowConfidence) && !errors.Is(err, model.ErrValidation) {
		h.logger.Error(msg, "invoice_id", invoiceID, "error", err)
	}
	h.WriteDomainError(w, err)
}

func toInvoiceResponse(inv *model.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:            inv.ID,
		Number:        inv.Number,
		Supplier:      inv.Supplier,
		Date:          formatDate(inv.Date),
		DueDate:       formatDate(inv.DueDate),
		Direction:     string(inv.Direction),
		Net:           inv.Amounts.Net.InexactFloat64(),
		Tax:           inv.Amounts.Tax.InexactFloat64(),
		TaxRate:       inv.Amounts.TaxRate.InexactFloat64(),
		Gross:         inv.Amounts.Gross.InexactFloat64(),
		Currency:      inv.Amounts.Currency,
		Category:      inv.Category,
		Status:        string(inv.Status),
		TransactionID: inv.TransactionID,
		CreatedAt:     inv.CreatedAt.UTC().Format(timestampLayout),
	}
}

func toCandidateResponse(c model.MatchCandidate) dto.CandidateResponse {
	notes := c.Notes
	if notes == nil {
		notes = []string{}
	}
	return dto.CandidateResponse{
		TransactionID:      c.TransactionID,
		Date:               formatDate(c.Transaction.Date),
		Amount:             c.Transaction.Amount.InexactFloat64(),
		Vendor:             c.Transaction.Vendor,
		Description:        c.Transaction.Description,
		VendorSimilarity:   c.VendorSimilarity,
		AmountDiff:         c.AmountDiff,
		AmountDiffRelative: c.AmountDiffRelative,
		DateDiffDays:       c.DateDiffDays,
		Confidence:         c.Confidence,
		Notes:              notes,
	}
}

func toRecordResponse(rec *model.Record) dto.RecordResponse {
	return dto.RecordResponse{
		ID:            rec.ID,
		InvoiceID:     rec.InvoiceID,
		TransactionID: rec.TransactionID,
		Confidence:    rec.Confidence,
		Method:        string(rec.Method),
		ConfirmedAt:   rec.ConfirmedAt.UTC().Format(timestampLayout),
	}
}
