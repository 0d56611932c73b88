package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/importer"
	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// maxUploadSize bounds statement uploads.
const maxUploadSize = 10 << 20

// TransactionsHandler handles bank transaction HTTP requests.
type TransactionsHandler struct {
	*Base
	logger *slog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository, logger *slog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		Base:   NewBase(repo),
		logger: logger,
	}
}

// List handles GET /api/transactions - returns paginated transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.TransactionFilters{
		Limit:  ParseIntParam(r, "limit", 50),
		Offset: ParseIntParam(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("reconciled"); raw != "" {
		reconciled, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("reconciled must be true or false"))
			return
		}
		filters.Reconciled = &reconciled
	}

	result, err := h.repo.ListTransactions(r.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(result.Transactions)),
		TotalCount:   result.TotalCount,
		Limit:        result.Limit,
		Offset:       result.Offset,
	}
	for i := range result.Transactions {
		response.Transactions = append(response.Transactions, toTransactionResponse(&result.Transactions[i]))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid transaction ID"))
		return
	}

	tx, err := h.repo.GetTransaction(r.Context(), id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// Delete handles DELETE /api/transactions/{id}. Reconciled transactions
// are rejected with 409 until their invoice is unlinked.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid transaction ID"))
		return
	}

	if err := h.repo.DeleteTransaction(r.Context(), id); err != nil {
		if !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrConflict) {
			h.logger.Error("delete transaction failed", "transaction_id", id, "error", err)
		}
		h.WriteDomainError(w, err)
		return
	}

	h.logger.Info("Deleted transaction", "transaction_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/transactions/import - reads a CSV or OFX
// statement from the multipart field "file".
func (h *TransactionsHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	batch, err := importer.ReadStatement(file, header.Filename)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
			return
		}
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	saved, err := h.repo.SaveTransactions(r.Context(), batch.Transactions)
	if err != nil {
		h.logger.Error("failed to save imported transactions",
			"batch_id", batch.ID,
			"source_file", batch.SourceFile,
			"error", err,
		)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.logger.Info("Imported statement",
		"batch_id", batch.ID,
		"source_file", batch.SourceFile,
		"inserted", saved.Inserted,
		"duplicates", saved.Duplicates,
		"skipped", batch.Skipped,
	)

	h.WriteJSON(w, http.StatusCreated, dto.ImportResponse{
		BatchID:    batch.ID,
		SourceFile: batch.SourceFile,
		Format:     string(batch.Format),
		Parsed:     len(batch.Transactions),
		Inserted:   saved.Inserted,
		Duplicates: saved.Duplicates,
		Skipped:    batch.Skipped,
	})
}

func toTransactionResponse(tx *model.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:            tx.ID,
		Date:          formatDate(tx.Date),
		Amount:        tx.Amount.InexactFloat64(),
		Vendor:        tx.Vendor,
		Description:   tx.Description,
		Category:      tx.Category,
		ExternalID:    tx.ExternalID,
		SourceFile:    tx.SourceFile,
		ImportBatchID: tx.ImportBatchID,
		IsReconciled:  tx.IsReconciled,
		InvoiceID:     tx.InvoiceID,
	}
}
