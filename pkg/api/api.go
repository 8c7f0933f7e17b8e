// Package api contains shared JSON request/response structs.
// This package is shared between the CLI, the controller and the worker.
package api

import "time"

// SubmitJobRequest is the request body for submitting a new generation job.
type SubmitJobRequest struct {
	Prompt string `json:"prompt"`
	// Model selects one of the branded model identifiers (e.g. "vibe-m").
	// Empty means the default model.
	Model string `json:"model,omitempty"`
}

// SubmitJobResponse is the response body after a job has been admitted.
type SubmitJobResponse struct {
	JobID            string `json:"job_id"`
	CreditsRemaining int    `json:"credits_remaining"`
}

// CancelJobRequest is the request body for cancelling a job.
// SandboxID is optional; when empty the controller falls back to the
// sandbox recorded on the job itself.
type CancelJobRequest struct {
	SandboxID string `json:"sandbox_id,omitempty"`
}

// CancelJobResponse is the response body after a cancel request.
type CancelJobResponse struct {
	Success bool `json:"success"`
}

// JobStatusResponse is the response body for job status queries.
type JobStatusResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Prompt      string         `json:"prompt"`
	Model       string         `json:"model"`
	Artifact    string         `json:"artifact,omitempty"`
	PreviewURL  string         `json:"preview_url,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	LastUpdated time.Time      `json:"last_updated"`
}

// JobListResponse is the response body for owner-scoped job listings.
type JobListResponse struct {
	Jobs []JobStatusResponse `json:"jobs"`
}

// JobStatsResponse summarises a user's jobs by status.
type JobStatsResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// CreditUsageEntry is a single row of the credit audit trail.
type CreditUsageEntry struct {
	Action    string    `json:"action"`
	Cost      int       `json:"cost"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditStatusResponse is the response body for credit status queries.
type CreditStatusResponse struct {
	Current int                `json:"current"`
	Daily   int                `json:"daily"`
	Tier    string             `json:"tier"`
	ResetAt time.Time          `json:"reset_at"`
	Usage   []CreditUsageEntry `json:"usage,omitempty"`
}

// TriggerJobRequest is the payload of the internal debug trigger endpoint.
// It mirrors the event published on the bus.
type TriggerJobRequest struct {
	Prompt  string `json:"prompt"`
	OwnerID string `json:"owner_id"`
	Model   string `json:"model,omitempty"`
}

// TriggerJobResponse acknowledges a published trigger event.
type TriggerJobResponse struct {
	Published bool `json:"published"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
