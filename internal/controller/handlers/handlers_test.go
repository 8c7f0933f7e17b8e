package handlers

import (
	"context"
	"time"

	"vibeplane/internal/credits"
	"vibeplane/internal/orchestrator"
	"vibeplane/internal/store"

	"github.com/google/uuid"
)

// Mock job store
type mockJobStore struct {
	getJobResp  *store.Job
	getJobErr   error
	listResp    []*store.Job
	listErr     error
	createErr   error
	setStateErr error
}

func (m *mockJobStore) CreateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	return m.createErr
}

func (m *mockJobStore) GetJobByID(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	return m.getJobResp, m.getJobErr
}

func (m *mockJobStore) ListJobsByOwner(ctx context.Context, ownerID string, limit int) ([]*store.Job, error) {
	return m.listResp, m.listErr
}

func (m *mockJobStore) SetJobStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.JobStatus, artifact, errDetail *string) error {
	return m.setStateErr
}

func (m *mockJobStore) SetJobSandbox(ctx context.Context, tx store.DBTransaction, id uuid.UUID, sandboxID string) error {
	return nil
}

func (m *mockJobStore) MergeJobMetadata(ctx context.Context, tx store.DBTransaction, id uuid.UUID, patch map[string]any) error {
	return nil
}

// Mock job service
type mockJobService struct {
	submitJob       *store.Job
	submitRemaining int
	submitErr       error
	cancelErr       error

	// Spies
	capturedPrompt  string
	capturedModel   string
	capturedOwner   string
	capturedSandbox string
}

func (m *mockJobService) Submit(ctx context.Context, ownerID, prompt, modelID string) (*store.Job, int, error) {
	m.capturedOwner = ownerID
	m.capturedPrompt = prompt
	m.capturedModel = modelID
	if m.submitErr != nil {
		return nil, 0, m.submitErr
	}
	return m.submitJob, m.submitRemaining, nil
}

func (m *mockJobService) Cancel(ctx context.Context, jobID uuid.UUID, ownerID, sandboxKey string) error {
	m.capturedOwner = ownerID
	m.capturedSandbox = sandboxKey
	return m.cancelErr
}

// Mock credit service
type mockCreditService struct {
	statusResp *credits.Status
	statusErr  error
}

func (m *mockCreditService) GetStatus(ctx context.Context, userID string) (*credits.Status, error) {
	return m.statusResp, m.statusErr
}

// Mock publisher
type mockPublisher struct {
	events     []orchestrator.GenerateEvent
	publishErr error
}

func (m *mockPublisher) PublishGenerate(ctx context.Context, event orchestrator.GenerateEvent) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.events = append(m.events, event)
	return nil
}

// Mock pinger
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.pingErr }

func testJob(owner string) *store.Job {
	now := time.Now()
	return &store.Job{
		ID:        uuid.New(),
		OwnerID:   owner,
		Prompt:    "a todo app",
		Model:     "vibe-m",
		Status:    store.JobStatusPending,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
