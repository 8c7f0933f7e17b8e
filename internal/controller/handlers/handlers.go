// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"vibeplane/internal/credits"
	"vibeplane/internal/orchestrator"
	"vibeplane/internal/store"
	"vibeplane/pkg/api"

	"github.com/google/uuid"
)

// JobService is the slice of the orchestrator the handlers depend on.
type JobService interface {
	Submit(ctx context.Context, ownerID, prompt, modelID string) (*store.Job, int, error)
	Cancel(ctx context.Context, jobID uuid.UUID, ownerID, sandboxKey string) error
}

// CreditService exposes the user-visible credit state.
type CreditService interface {
	GetStatus(ctx context.Context, userID string) (*credits.Status, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	jobs      store.JobStore
	service   JobService
	credits   CreditService
	publisher orchestrator.Publisher
	pinger    Pinger
}

// New creates a new Handlers instance with the given dependencies.
func New(jobs store.JobStore, service JobService, creditService CreditService, publisher orchestrator.Publisher, pinger Pinger) *Handlers {
	return &Handlers{
		jobs:      jobs,
		service:   service,
		credits:   creditService,
		publisher: publisher,
		pinger:    pinger,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
