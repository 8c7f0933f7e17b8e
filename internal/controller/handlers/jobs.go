package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vibeplane/internal/controller/middleware"
	"vibeplane/internal/orchestrator"
	"vibeplane/internal/store"
	"vibeplane/pkg/api"

	"github.com/google/uuid"
)

// SubmitJob handles POST /jobs.
// Admission (the credit check) happens before any job record is created;
// admission failures surface synchronously, everything after is async.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	job, remaining, err := h.service.Submit(ctx, ownerID, req.Prompt, req.Model)
	if err != nil {
		var admission *orchestrator.AdmissionError
		if errors.As(err, &admission) {
			h.httpError(w, admission.Reason, http.StatusPaymentRequired)
			return
		}
		h.httpError(w, "Failed to submit job", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.SubmitJobResponse{
		JobID:            job.ID.String(),
		CreditsRemaining: remaining,
	})
}

// CancelJob handles POST /jobs/{id}/cancel.
// Cancelling an already-terminal job is a no-op returning success.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CancelJobRequest
	// Body is optional; without an explicit sandbox id the teardown is
	// left to the worker holding the job's handle.
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.service.Cancel(ctx, jobID, ownerID, req.SandboxID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.httpError(w, "Job not found", http.StatusNotFound)
		case errors.Is(err, orchestrator.ErrNotOwner):
			h.httpError(w, "You don't have permission to cancel this job", http.StatusForbidden)
		default:
			h.httpError(w, "Failed to cancel job", http.StatusInternalServerError)
		}
		return
	}

	h.respondJson(w, http.StatusOK, api.CancelJobResponse{Success: true})
}

// GetJob handles GET /jobs/{id}.
// Once a job exists its status is always reported, terminal failures
// included; only pre-job admission errors surface as request errors.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	job, err := h.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	if job.OwnerID != ownerID {
		h.httpError(w, "Job not found", http.StatusNotFound)
		return
	}

	h.respondJson(w, http.StatusOK, jobToResponse(job))
}

// ListJobs handles GET /jobs.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobs, err := h.jobs.ListJobsByOwner(ctx, ownerID, 50)
	if err != nil {
		h.httpError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := api.JobListResponse{Jobs: make([]api.JobStatusResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobToResponse(job))
	}

	h.respondJson(w, http.StatusOK, resp)
}

// GetJobStats handles GET /jobs/stats.
func (h *Handlers) GetJobStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobs, err := h.jobs.ListJobsByOwner(ctx, ownerID, 0)
	if err != nil {
		h.httpError(w, "Failed to load jobs", http.StatusInternalServerError)
		return
	}

	var stats api.JobStatsResponse
	stats.Total = len(jobs)
	for _, job := range jobs {
		switch job.Status {
		case store.JobStatusCompleted:
			stats.Completed++
		case store.JobStatusPending:
			stats.Pending++
		case store.JobStatusRunning, store.JobStatusCancelling:
			stats.Running++
		case store.JobStatusFailed:
			stats.Failed++
		case store.JobStatusCancelled:
			stats.Cancelled++
		}
	}

	h.respondJson(w, http.StatusOK, stats)
}

// TriggerJob handles POST /internal/jobs/trigger.
// It publishes a bare generation event; the consumer creates the job
// record. Meant for debugging the dispatch path, not for end users.
func (h *Handlers) TriggerJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TriggerJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" || req.OwnerID == "" {
		h.httpError(w, "Prompt and owner_id are required", http.StatusBadRequest)
		return
	}

	event := orchestrator.GenerateEvent{
		Prompt:  req.Prompt,
		OwnerID: req.OwnerID,
		Model:   req.Model,
	}
	if err := h.publisher.PublishGenerate(ctx, event); err != nil {
		h.httpError(w, "Failed to publish event", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.TriggerJobResponse{Published: true})
}

func jobToResponse(job *store.Job) api.JobStatusResponse {
	resp := api.JobStatusResponse{
		ID:          job.ID.String(),
		Status:      string(job.Status),
		Prompt:      job.Prompt,
		Model:       job.Model,
		Metadata:    job.Metadata,
		CreatedAt:   job.CreatedAt,
		LastUpdated: job.UpdatedAt,
	}
	if job.Artifact != nil {
		resp.Artifact = *job.Artifact
	}
	if job.ErrorDetail != nil {
		resp.ErrorDetail = *job.ErrorDetail
	}
	if url, ok := job.Metadata["previewUrl"].(string); ok {
		resp.PreviewURL = url
	}
	return resp
}
