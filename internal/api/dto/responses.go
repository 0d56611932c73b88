package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	ID            int64   `json:"id"`
	Number        string  `json:"number"`
	Supplier      string  `json:"supplier"`
	Date          string  `json:"date"`
	DueDate       string  `json:"due_date,omitempty"`
	Direction     string  `json:"direction"`
	Net           float64 `json:"net"`
	Tax           float64 `json:"tax"`
	TaxRate       float64 `json:"tax_rate"`
	Gross         float64 `json:"gross"`
	Currency      string  `json:"currency"`
	Category      string  `json:"category,omitempty"`
	Status        string  `json:"status"`
	TransactionID *int64  `json:"transaction_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// InvoiceListResponse is returned when listing invoices.
type InvoiceListResponse struct {
	Invoices   []InvoiceResponse `json:"invoices"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// TransactionResponse represents a bank transaction in API responses.
type TransactionResponse struct {
	ID            int64   `json:"id"`
	Date          string  `json:"date"`
	Amount        float64 `json:"amount"`
	Vendor        string  `json:"vendor"`
	Description   string  `json:"description,omitempty"`
	Category      string  `json:"category,omitempty"`
	ExternalID    string  `json:"external_id,omitempty"`
	SourceFile    string  `json:"source_file,omitempty"`
	ImportBatchID string  `json:"import_batch_id,omitempty"`
	IsReconciled  bool    `json:"is_reconciled"`
	InvoiceID     *int64  `json:"invoice_id,omitempty"`
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// ImportResponse is returned after a statement import.
type ImportResponse struct {
	BatchID    string `json:"batch_id"`
	SourceFile string `json:"source_file"`
	Format     string `json:"format"`
	Parsed     int    `json:"parsed"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
}

// CandidateResponse is one scored transaction for an invoice.
type CandidateResponse struct {
	TransactionID      int64    `json:"transaction_id"`
	Date               string   `json:"date"`
	Amount             float64  `json:"amount"`
	Vendor             string   `json:"vendor"`
	Description        string   `json:"description,omitempty"`
	VendorSimilarity   float64  `json:"vendor_similarity"`
	AmountDiff         float64  `json:"amount_diff"`
	AmountDiffRelative float64  `json:"amount_diff_relative"`
	DateDiffDays       int      `json:"date_diff_days"`
	Confidence         float64  `json:"confidence"`
	Notes              []string `json:"notes"`
}

// SearchResponse is returned by the candidates endpoint.
type SearchResponse struct {
	InvoiceID  int64               `json:"invoice_id"`
	Found      bool                `json:"found"`
	Outcome    string              `json:"outcome"`
	Candidates []CandidateResponse `json:"candidates"`
	Skipped    int                 `json:"skipped,omitempty"`
}

// RecordResponse represents a confirmed reconciliation.
type RecordResponse struct {
	ID            int64   `json:"id"`
	InvoiceID     int64   `json:"invoice_id"`
	TransactionID int64   `json:"transaction_id"`
	Confidence    float64 `json:"confidence"`
	Method        string  `json:"method"`
	ConfirmedAt   string  `json:"confirmed_at"`
}

// RunResponse represents a recorded batch run.
type RunResponse struct {
	ID            int64  `json:"id"`
	JobID         string `json:"job_id,omitempty"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
	Status        string `json:"status"`
	Processed     int    `json:"processed"`
	AutoConfirmed int    `json:"auto_confirmed"`
	ManualReview  int    `json:"manual_review"`
	NoMatch       int    `json:"no_match"`
	Errors        int    `json:"errors"`
	Cancelled     bool   `json:"cancelled"`
}

// RunListResponse is returned when listing batch runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// SettingsResponse exposes the active matching configuration.
type SettingsResponse struct {
	DateWindowDays  int     `json:"date_window_days"`
	AmountTolerance float64 `json:"amount_tolerance"`
	AmountFloor     float64 `json:"amount_floor"`
	SearchTolerance float64 `json:"search_tolerance"`
	AutoConfirm     float64 `json:"auto_confirm_threshold"`
	Review          float64 `json:"review_threshold"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
