package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/api/handlers"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

func newInvoicesHandler(repo *storage.MemoryStore) *handlers.InvoicesHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := reconcile.NewEngine(repo, reconcile.Options{Logger: logger})
	return handlers.NewInvoicesHandler(repo, engine, logger)
}

func TestInvoicesHandler_List(t *testing.T) {
	t.Run("returns empty list when no invoices", func(t *testing.T) {
		handler := newInvoicesHandler(storage.NewMemoryStore())

		req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.InvoiceListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Empty(t, response.Invoices)
		assert.Equal(t, 50, response.Limit)
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		repo := storage.NewMemoryStore()
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.SaveInvoice(context.Background(), &model.Invoice{
				Supplier:  "Acme",
				Date:      time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
				Direction: model.DirectionOutgoing,
				Amounts:   model.Amounts{Gross: decimal.NewFromInt(10)},
			}))
		}
		handler := newInvoicesHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/invoices?limit=3", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		var response dto.InvoiceListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Len(t, response.Invoices, 3)
		assert.Equal(t, 5, response.TotalCount)
		assert.Equal(t, "2024-01-05", response.Invoices[0].Date, "newest first")
	})
}

func TestInvoicesHandler_Create_InvalidBody(t *testing.T) {
	handler := newInvoicesHandler(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoicesHandler_Candidates_AlreadyReconciled(t *testing.T) {
	// Arrange
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	inv := &model.Invoice{
		Supplier:  "Acme",
		Date:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Direction: model.DirectionOutgoing,
		Amounts:   model.Amounts{Gross: decimal.NewFromInt(100)},
	}
	require.NoError(t, repo.SaveInvoice(ctx, inv))
	saved, err := repo.SaveTransactions(ctx, []model.Transaction{{
		Date: inv.Date, Amount: decimal.NewFromInt(-100), Vendor: "ACME",
	}})
	require.NoError(t, err)
	require.NoError(t, repo.Link(ctx, &model.Record{InvoiceID: inv.ID, TransactionID: saved.IDs[0], Method: model.MethodManual}))
	handler := newInvoicesHandler(repo)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "1")
	rec := httptest.NewRecorder()

	// Act
	handler.Candidates(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "already_reconciled", response.Outcome)
	assert.False(t, response.Found)
	assert.Empty(t, response.Candidates)
}
