package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/api"
	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testServer struct {
	server *api.Server
	repo   *storage.MemoryStore
	jobs   *service.ReconcileService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := storage.NewMemoryStore()
	logger := quietLogger()
	engine := reconcile.NewEngine(repo, reconcile.Options{Runs: repo, Logger: logger})
	jobs := service.NewReconcileService(engine, logger)
	return &testServer{
		server: api.NewServer(api.DefaultConfig(), repo, engine, jobs, logger),
		repo:   repo,
		jobs:   jobs,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) addInvoice(t *testing.T, supplier, gross string, d time.Time) int64 {
	t.Helper()
	inv := &model.Invoice{
		Number:    "INV-" + supplier,
		Supplier:  supplier,
		Date:      d,
		Direction: model.DirectionOutgoing,
		Amounts:   model.Amounts{Gross: decimal.RequireFromString(gross), Currency: "EUR"},
	}
	require.NoError(t, ts.repo.SaveInvoice(context.Background(), inv))
	return inv.ID
}

func (ts *testServer) addTransaction(t *testing.T, vendor, amount string, d time.Time) int64 {
	t.Helper()
	res, err := ts.repo.SaveTransactions(context.Background(), []model.Transaction{{
		Date:   d,
		Amount: decimal.RequireFromString(amount),
		Vendor: vendor,
	}})
	require.NoError(t, err)
	return res.IDs[0]
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestServer_HealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	response := decode[dto.HealthResponse](t, rec)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_InvoiceEndpoints(t *testing.T) {
	t.Run("POST /api/invoices stores the invoice", func(t *testing.T) {
		ts := newTestServer(t)
		body := `{
			"invoice_number": "F-1",
			"invoice_date": "2024-03-10",
			"supplier": {"name": "Orange Business"},
			"amounts": {"ht": 100, "tva": 20, "ttc": 120},
			"invoice_type": "entrante"
		}`

		rec := ts.do(t, http.MethodPost, "/api/invoices", strings.NewReader(body))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		response := decode[dto.InvoiceResponse](t, rec)
		assert.NotZero(t, response.ID)
		assert.Equal(t, "2024-03-10", response.Date)
		assert.Equal(t, 120.0, response.Gross)
		assert.Equal(t, "outgoing", response.Direction)
		assert.Equal(t, "unreconciled", response.Status)
	})

	t.Run("POST /api/invoices rejects invalid payloads", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/invoices", strings.NewReader(`{"invoice_date": "2024-03-10", "supplier": {"name": "A"}}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeValidation, decode[dto.APIError](t, rec).Code)
	})

	t.Run("GET /api/invoices filters by status", func(t *testing.T) {
		ts := newTestServer(t)
		invID := ts.addInvoice(t, "Orange Business", "120.00", day(2024, 3, 10))
		ts.addInvoice(t, "Acme", "80.00", day(2024, 3, 11))
		txID := ts.addTransaction(t, "ORANGE SA", "-120.00", day(2024, 3, 12))
		require.NoError(t, ts.repo.Link(context.Background(), &model.Record{
			InvoiceID: invID, TransactionID: txID, Confidence: 0.99, Method: model.MethodManual,
		}))

		all := decode[dto.InvoiceListResponse](t, ts.do(t, http.MethodGet, "/api/invoices", nil))
		reconciled := decode[dto.InvoiceListResponse](t, ts.do(t, http.MethodGet, "/api/invoices?status=reconciled", nil))

		assert.Equal(t, 2, all.TotalCount)
		require.Equal(t, 1, reconciled.TotalCount)
		assert.Equal(t, invID, reconciled.Invoices[0].ID)
		require.NotNil(t, reconciled.Invoices[0].TransactionID)
		assert.Equal(t, txID, *reconciled.Invoices[0].TransactionID)
	})

	t.Run("GET /api/invoices rejects unknown status", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/invoices?status=paid", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("GET /api/invoices/:id returns 404 when missing", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/invoices/42", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decode[dto.APIError](t, rec).Code)
	})

	t.Run("GET /api/invoices/:id rejects non-numeric ids", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/invoices/abc", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Candidates(t *testing.T) {
	ts := newTestServer(t)
	invID := ts.addInvoice(t, "Orange Business", "120.00", day(2024, 3, 10))
	txID := ts.addTransaction(t, "ORANGE SA", "-120.00", day(2024, 3, 12))

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/invoices/%d/candidates", invID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	response := decode[dto.SearchResponse](t, rec)
	assert.True(t, response.Found)
	assert.Equal(t, "auto_confirm_eligible", response.Outcome)
	require.Len(t, response.Candidates, 1)
	assert.Equal(t, txID, response.Candidates[0].TransactionID)
	assert.Equal(t, -120.0, response.Candidates[0].Amount)
	assert.Equal(t, 2, response.Candidates[0].DateDiffDays)
	assert.GreaterOrEqual(t, response.Candidates[0].Confidence, 0.85)
}

func TestServer_Candidates_NoMatchIsEmptyList(t *testing.T) {
	ts := newTestServer(t)
	invID := ts.addInvoice(t, "Acme", "80.00", day(2024, 5, 1))

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/invoices/%d/candidates", invID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"candidates":[]`)
	assert.Equal(t, "no_match", decode[dto.SearchResponse](t, rec).Outcome)
}

func TestServer_Confirm(t *testing.T) {
	t.Run("links a reviewable pair", func(t *testing.T) {
		ts := newTestServer(t)
		invID := ts.addInvoice(t, "Acme", "100.00", day(2024, 5, 1))
		txID := ts.addTransaction(t, "ACME", "-107.50", day(2024, 5, 1))
		body := fmt.Sprintf(`{"transaction_id": %d, "confidence": 0.8}`, txID)

		rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/confirm", invID), strings.NewReader(body))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		response := decode[dto.RecordResponse](t, rec)
		assert.Equal(t, invID, response.InvoiceID)
		assert.Equal(t, txID, response.TransactionID)
		assert.Equal(t, "manual", response.Method)
		assert.InDelta(t, 0.80, response.Confidence, 1e-9)
	})

	t.Run("low confidence without override is 422", func(t *testing.T) {
		ts := newTestServer(t)
		invID := ts.addInvoice(t, "Acme", "500.00", day(2024, 5, 1))
		txID := ts.addTransaction(t, "ACME", "-350.00", day(2024, 5, 1))
		path := fmt.Sprintf("/api/invoices/%d/confirm", invID)

		rec := ts.do(t, http.MethodPost, path, strings.NewReader(fmt.Sprintf(`{"transaction_id": %d}`, txID)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeLowConfidence, decode[dto.APIError](t, rec).Code)
		assert.Equal(t, 0, ts.repo.LinkCalls())

		rec = ts.do(t, http.MethodPost, path, strings.NewReader(fmt.Sprintf(`{"transaction_id": %d, "override": true}`, txID)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "manual-override", decode[dto.RecordResponse](t, rec).Method)
	})

	t.Run("transaction already reconciled is 409", func(t *testing.T) {
		ts := newTestServer(t)
		first := ts.addInvoice(t, "Acme", "100.00", day(2024, 5, 1))
		second := ts.addInvoice(t, "Acme", "100.00", day(2024, 5, 2))
		txID := ts.addTransaction(t, "ACME", "-100.00", day(2024, 5, 1))
		body := fmt.Sprintf(`{"transaction_id": %d}`, txID)

		rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/confirm", first), strings.NewReader(body))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/confirm", second), strings.NewReader(body))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, dto.ErrCodeConflict, decode[dto.APIError](t, rec).Code)
	})

	t.Run("unknown transaction is 404", func(t *testing.T) {
		ts := newTestServer(t)
		invID := ts.addInvoice(t, "Acme", "100.00", day(2024, 5, 1))

		rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/confirm", invID), strings.NewReader(`{"transaction_id": 99}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing transaction_id is 400", func(t *testing.T) {
		ts := newTestServer(t)
		invID := ts.addInvoice(t, "Acme", "100.00", day(2024, 5, 1))

		rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/confirm", invID), strings.NewReader(`{}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Unlink(t *testing.T) {
	ts := newTestServer(t)
	invID := ts.addInvoice(t, "Orange Business", "120.00", day(2024, 3, 10))
	txID := ts.addTransaction(t, "ORANGE SA", "-120.00", day(2024, 3, 12))
	path := fmt.Sprintf("/api/invoices/%d/reconciliation", invID)

	rec := ts.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "unlinking an unreconciled invoice")

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/confirm", invID), strings.NewReader(fmt.Sprintf(`{"transaction_id": %d}`, txID)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tx := decode[dto.TransactionResponse](t, ts.do(t, http.MethodGet, fmt.Sprintf("/api/transactions/%d", txID), nil))
	assert.False(t, tx.IsReconciled)
	assert.Nil(t, tx.InvoiceID)
}

func TestServer_DeleteRequiresUnlink(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	invID := ts.addInvoice(t, "Orange Business", "120.00", day(2024, 3, 10))
	txID := ts.addTransaction(t, "ORANGE SA", "-120.00", day(2024, 3, 12))
	require.NoError(t, ts.repo.Link(context.Background(), &model.Record{
		InvoiceID: invID, TransactionID: txID, Confidence: 0.99, Method: model.MethodAuto,
	}))
	invoicePath := fmt.Sprintf("/api/invoices/%d", invID)
	txPath := fmt.Sprintf("/api/transactions/%d", txID)

	// Act / Assert - both sides are protected while linked
	rec := ts.do(t, http.MethodDelete, invoicePath, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, dto.ErrCodeConflict, decode[dto.APIError](t, rec).Code)

	rec = ts.do(t, http.MethodDelete, txPath, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, invoicePath+"/reconciliation", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, invoicePath, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, txPath, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, invoicePath, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, txPath, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodDelete, "/api/transactions/abc", nil).Code)
}

func TestServer_TransactionEndpoints(t *testing.T) {
	t.Run("GET /api/transactions filters by reconciled", func(t *testing.T) {
		ts := newTestServer(t)
		invID := ts.addInvoice(t, "Orange Business", "120.00", day(2024, 3, 10))
		txID := ts.addTransaction(t, "ORANGE SA", "-120.00", day(2024, 3, 12))
		ts.addTransaction(t, "SNCF", "-45.90", day(2024, 3, 15))
		require.NoError(t, ts.repo.Link(context.Background(), &model.Record{
			InvoiceID: invID, TransactionID: txID, Confidence: 0.99, Method: model.MethodAuto,
		}))

		open := decode[dto.TransactionListResponse](t, ts.do(t, http.MethodGet, "/api/transactions?reconciled=false", nil))

		require.Equal(t, 1, open.TotalCount)
		assert.Equal(t, "SNCF", open.Transactions[0].Vendor)
		assert.Equal(t, -45.9, open.Transactions[0].Amount)
	})

	t.Run("GET /api/transactions rejects a bad reconciled flag", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/transactions?reconciled=maybe", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("GET /api/transactions/:id returns 404 when missing", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/transactions/7", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestServer_ImportStatement(t *testing.T) {
	ts := newTestServer(t)
	csv := "date,amount,vendor,description\n" +
		"2024-03-12,-120.00,ORANGE SA,Abonnement\n" +
		"2024-03-15,\"-45,90\",SNCF,\n" +
		"bad,-1,X,\n"

	body, contentType := multipartUpload(t, "releve.csv", csv)
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	ts.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	response := decode[dto.ImportResponse](t, rec)
	assert.NotEmpty(t, response.BatchID)
	assert.Equal(t, "releve.csv", response.SourceFile)
	assert.Equal(t, "csv", response.Format)
	assert.Equal(t, 2, response.Parsed)
	assert.Equal(t, 2, response.Inserted)
	assert.Equal(t, 1, response.Skipped)

	list, err := ts.repo.ListTransactions(context.Background(), storage.TransactionFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)
}

func TestServer_ImportStatement_Errors(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/transactions/import", strings.NewReader("{}"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		ts := newTestServer(t)
		body, contentType := multipartUpload(t, "releve.xls", "whatever")
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		ts.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[dto.APIError](t, rec).Message, "unsupported statement format")
	})
}

func TestServer_ReconcileJob(t *testing.T) {
	ts := newTestServer(t)
	invID := ts.addInvoice(t, "Orange Business", "120.00", day(2024, 3, 10))
	ts.addTransaction(t, "ORANGE SA", "-120.00", day(2024, 3, 12))

	// Start
	rec := ts.do(t, http.MethodPost, "/api/reconcile", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decode[dto.StartReconcileResponse](t, rec)
	require.NotEmpty(t, started.JobID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := ts.jobs.Wait(ctx, started.JobID)
	require.NoError(t, err)

	// Status
	rec = ts.do(t, http.MethodGet, "/api/reconcile/jobs/"+started.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[dto.JobResponse](t, rec)
	assert.Equal(t, "completed", job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.Processed)
	assert.Equal(t, 1, job.Result.AutoConfirmed)
	assert.NotNil(t, job.CompletedAt)
	assert.False(t, job.Stale)

	inv := decode[dto.InvoiceResponse](t, ts.do(t, http.MethodGet, fmt.Sprintf("/api/invoices/%d", invID), nil))
	assert.Equal(t, "reconciled", inv.Status)

	// History
	jobs := decode[dto.JobListResponse](t, ts.do(t, http.MethodGet, "/api/reconcile/jobs", nil))
	assert.Equal(t, 1, jobs.Count)

	active := decode[dto.JobListResponse](t, ts.do(t, http.MethodGet, "/api/reconcile/jobs?active=true", nil))
	assert.Equal(t, 0, active.Count)

	runs := decode[dto.RunListResponse](t, ts.do(t, http.MethodGet, "/api/reconcile/runs", nil))
	require.Equal(t, 1, runs.Count)
	assert.Equal(t, started.JobID, runs.Runs[0].JobID)
	assert.Equal(t, "completed", runs.Runs[0].Status)
	assert.Equal(t, 1, runs.Runs[0].AutoConfirmed)
}

// stuckBatcher never reports progress and returns only when cancelled.
type stuckBatcher struct{}

func (stuckBatcher) ReconcileAllWith(ctx context.Context, _ reconcile.BatchOptions) (*reconcile.Stats, error) {
	<-ctx.Done()
	return &reconcile.Stats{Cancelled: true}, nil
}

func TestServer_ReconcileJob_ReportsStale(t *testing.T) {
	// Arrange
	repo := storage.NewMemoryStore()
	engine := reconcile.NewEngine(repo, reconcile.Options{Logger: quietLogger()})
	jobs := service.NewReconcileService(stuckBatcher{}, quietLogger())
	jobs.SetStaleLimits(time.Millisecond, time.Hour)
	server := api.NewServer(api.DefaultConfig(), repo, engine, jobs, quietLogger())
	ts := &testServer{server: server, repo: repo, jobs: jobs}

	started := decode[dto.StartReconcileResponse](t, ts.do(t, http.MethodPost, "/api/reconcile", nil))
	require.NotEmpty(t, started.JobID)
	time.Sleep(20 * time.Millisecond)

	// Act
	rec := ts.do(t, http.MethodGet, "/api/reconcile/jobs/"+started.JobID, nil)
	active := decode[dto.JobListResponse](t, ts.do(t, http.MethodGet, "/api/reconcile/jobs?active=true", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.JobResponse](t, rec).Stale)
	require.Equal(t, 1, active.Count)
	assert.True(t, active.Jobs[0].Stale)

	require.NoError(t, jobs.CancelJob(started.JobID))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	finished, err := jobs.Wait(ctx, started.JobID)
	require.NoError(t, err)
	assert.False(t, jobs.Stale(finished.ID))
}

func TestServer_ReconcileJob_NotFound(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/reconcile/jobs/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/reconcile/jobs/nope", nil).Code)
}

func TestServer_ReconcileSettings(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/reconcile/settings", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[dto.SettingsResponse](t, rec)
	assert.Equal(t, 45, settings.DateWindowDays)
	assert.Equal(t, 0.15, settings.AmountTolerance)
	assert.Equal(t, 2.0, settings.AmountFloor)
	assert.Equal(t, 0.85, settings.AutoConfirm)
	assert.Equal(t, 0.70, settings.Review)
}

func TestServer_JobRoutesRequireService(t *testing.T) {
	repo := storage.NewMemoryStore()
	engine := reconcile.NewEngine(repo, reconcile.Options{Logger: quietLogger()})
	server := api.NewServer(api.DefaultConfig(), repo, engine, nil, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()

	ts.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
