package dto

// ConfirmRequest is the request body for confirming a reconciliation.
type ConfirmRequest struct {
	TransactionID int64    `json:"transaction_id"`
	Override      bool     `json:"override"`
	Confidence    *float64 `json:"confidence,omitempty"` // what the client displayed
}

// StartReconcileResponse is returned when a batch job is started.
type StartReconcileResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse represents a batch job's status.
type JobResponse struct {
	JobID       string             `json:"job_id"`
	Status      string             `json:"status"`
	StartedAt   string             `json:"started_at"`
	CompletedAt *string            `json:"completed_at,omitempty"`
	Progress    ProgressResponse   `json:"progress"`
	Result      *JobResultResponse `json:"result,omitempty"`
	Error       *string            `json:"error,omitempty"`
	Stale       bool               `json:"stale,omitempty"`
}

// ProgressResponse represents real-time progress.
type ProgressResponse struct {
	CurrentPhase      string `json:"current_phase"`
	TotalInvoices     int    `json:"total_invoices"`
	ProcessedInvoices int    `json:"processed_invoices"`
	LastUpdate        string `json:"last_update"`
}

// JobResultResponse represents the final counts of a batch.
type JobResultResponse struct {
	RunID         int64 `json:"run_id,omitempty"`
	Processed     int   `json:"processed"`
	AutoConfirmed int   `json:"auto_confirmed"`
	ManualReview  int   `json:"manual_review"`
	NoMatch       int   `json:"no_match"`
	Errors        int   `json:"errors"`
	Cancelled     bool  `json:"cancelled"`
}

// JobListResponse lists batch jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
