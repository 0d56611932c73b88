package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/api/handlers"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

func TestBase_WriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", model.NewNotFound("invoice", 1), http.StatusNotFound, dto.ErrCodeNotFound},
		{"conflict", model.NewConflict("transaction", 2), http.StatusConflict, dto.ErrCodeConflict},
		{"wrapped conflict", fmt.Errorf("link: %w", model.NewConflict("invoice", 3)), http.StatusConflict, dto.ErrCodeConflict},
		{"low confidence", &model.LowConfidenceError{InvoiceID: 1, TransactionID: 2, Confidence: 0.6, Threshold: 0.7}, http.StatusUnprocessableEntity, dto.ErrCodeLowConfidence},
		{"validation", &model.ValidationError{Entity: "invoice", ID: 1, Field: "date"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternalError},
	}

	base := handlers.NewBase(storage.NewMemoryStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			base.WriteDomainError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var apiErr dto.APIError
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestBase_InternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	handlers.NewBase(nil).WriteDomainError(rec, errors.New("sqlite: database is locked"))

	assert.NotContains(t, rec.Body.String(), "sqlite")
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value  string
		want   int64
		wantOK bool
	}{
		{"12", 12, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", tt.value)

			got, ok := handlers.ParseIDParam(req, "id")

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&offset=x&active=1", nil)

	assert.Equal(t, 10, handlers.ParseIntParam(req, "limit", 50))
	assert.Equal(t, 0, handlers.ParseIntParam(req, "offset", 0))
	assert.True(t, handlers.ParseBoolParam(req, "active", false))
	assert.True(t, handlers.ParseBoolParam(req, "missing", true))
}
