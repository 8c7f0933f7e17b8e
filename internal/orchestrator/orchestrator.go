// Package orchestrator drives a generation job from admission through
// code generation, sandbox provisioning, execution and completion.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vibeplane/internal/credits"
	"vibeplane/internal/generator"
	"vibeplane/internal/sandbox"
	"vibeplane/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Prompts shorter than this are rejected at admission.
const minPromptLength = 3

// AdmissionError rejects a request before any job exists. It is never
// retried and surfaces synchronously to the caller.
type AdmissionError struct {
	Reason    string
	Remaining int
}

func (e *AdmissionError) Error() string {
	return e.Reason
}

// ErrNotOwner is returned when a caller acts on a job it does not own.
var ErrNotOwner = errors.New("job does not belong to caller")

// GenerateEvent is the payload of the asynchronous dispatch boundary.
// JobID is set only when the event resumes an already-created job;
// bare events cause the consumer to create the job record itself.
type GenerateEvent struct {
	JobID   string `json:"job_id,omitempty"`
	Prompt  string `json:"prompt"`
	OwnerID string `json:"owner_id"`
	Model   string `json:"model,omitempty"`
}

// Publisher dispatches generation events to the worker fleet.
type Publisher interface {
	PublishGenerate(ctx context.Context, event GenerateEvent) error
}

// GeneratorFactory builds the code generator for a selected model.
type GeneratorFactory func(model generator.Model) generator.Generator

// Orchestrator owns the job state machine. It is the only writer of the
// metadata keys previewUrl, sandboxId, executionTimeMs and completedAt;
// the cancellation path owns cancelledAt and teardownError.
type Orchestrator struct {
	jobs         store.JobStore
	ledger       *credits.Ledger
	pool         *sandbox.Pool
	newGenerator GeneratorFactory
	publisher    Publisher
	templateID   string
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an orchestrator.
func New(jobs store.JobStore, ledger *credits.Ledger, pool *sandbox.Pool, factory GeneratorFactory, publisher Publisher, templateID string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:         jobs,
		ledger:       ledger,
		pool:         pool,
		newGenerator: factory,
		publisher:    publisher,
		templateID:   templateID,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit admits a request against the owner's credit budget, creates the
// PENDING job record and dispatches the generation event. The credit
// check happens before any job record exists.
func (o *Orchestrator) Submit(ctx context.Context, ownerID, prompt, modelID string) (*store.Job, int, error) {
	if len(strings.TrimSpace(prompt)) < minPromptLength {
		return nil, 0, &AdmissionError{Reason: fmt.Sprintf("prompt must be at least %d characters", minPromptLength)}
	}

	result, err := o.ledger.CheckAndConsume(ctx, ownerID, credits.ActionGeneration, true)
	if err != nil {
		// Ledger infrastructure failure, not an admission verdict.
		return nil, 0, fmt.Errorf("credit check failed: %w", err)
	}
	if !result.OK {
		return nil, 0, &AdmissionError{Reason: result.Reason, Remaining: result.Remaining}
	}

	model := generator.LookupModel(modelID)
	jobTime := o.now().UTC()
	job := &store.Job{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Prompt:    prompt,
		Model:     model.ID,
		Status:    store.JobStatusPending,
		Metadata:  map[string]any{},
		CreatedAt: jobTime,
		UpdatedAt: jobTime,
	}

	if err := o.jobs.CreateJob(ctx, nil, job); err != nil {
		return nil, 0, fmt.Errorf("failed to create job record: %w", err)
	}

	event := GenerateEvent{
		JobID:   job.ID.String(),
		Prompt:  prompt,
		OwnerID: ownerID,
		Model:   model.ID,
	}
	if err := o.publisher.PublishGenerate(ctx, event); err != nil {
		detail := fmt.Sprintf("failed to dispatch generation: %v", err)
		if setErr := o.jobs.SetJobStatus(ctx, nil, job.ID, store.JobStatusFailed, nil, &detail); setErr != nil {
			o.logger.Error("failed to mark undispatched job", "job_id", job.ID, "error", setErr)
		}
		return nil, 0, fmt.Errorf("failed to dispatch generation event: %w", err)
	}

	return job, result.Remaining, nil
}

// Resolve maps an incoming event to its job. Resume events load the
// existing record; bare events create a fresh PENDING job.
func (o *Orchestrator) Resolve(ctx context.Context, event GenerateEvent) (*store.Job, error) {
	if event.JobID != "" {
		id, err := uuid.Parse(event.JobID)
		if err != nil {
			return nil, fmt.Errorf("invalid job id in event: %w", err)
		}
		return o.jobs.GetJobByID(ctx, id)
	}

	jobTime := o.now().UTC()
	job := &store.Job{
		ID:        uuid.New(),
		OwnerID:   event.OwnerID,
		Prompt:    event.Prompt,
		Model:     generator.LookupModel(event.Model).ID,
		Status:    store.JobStatusPending,
		Metadata:  map[string]any{},
		CreatedAt: jobTime,
		UpdatedAt: jobTime,
	}
	if err := o.jobs.CreateJob(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}
	return job, nil
}

// Run executes the step sequence for one job. Observing a terminal state
// is a no-op, not an error. Cancellation is cooperative: the job status
// is re-checked between steps and an unresumable external call finishes
// before the cancel signal is acted on.
func (o *Orchestrator) Run(ctx context.Context, job *store.Job) error {
	tracer := otel.Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "run_generation_job",
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.String("job.owner", job.OwnerID),
			attribute.String("job.model", job.Model),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	if job.Status.IsTerminal() {
		return nil
	}
	if job.Status == store.JobStatusCancelling {
		return o.finishCancel(ctx, job.ID, false)
	}

	start := o.now()

	if err := o.jobs.SetJobStatus(ctx, nil, job.ID, store.JobStatusRunning, nil, nil); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			return nil
		}
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	// Step 1: generate code, with bounded retry on transient failures.
	model := generator.LookupModel(job.Model)
	gen := generator.WithRetry(o.newGenerator(model))
	code, err := gen.Generate(ctx, job.Prompt)
	if err != nil {
		span.RecordError(err)
		return o.fail(ctx, job.ID, fmt.Sprintf("code generation failed: %v", err), false)
	}

	if cancelled, err := o.cancelRequested(ctx, job.ID); err != nil {
		return err
	} else if cancelled {
		return o.finishCancel(ctx, job.ID, false)
	}

	// Step 2: acquire a sandbox, keyed by the fixed template.
	handle, err := o.pool.Acquire(ctx, o.templateID)
	if err != nil {
		span.RecordError(err)
		return o.fail(ctx, job.ID, fmt.Sprintf("sandbox provisioning failed: %v", err), false)
	}

	instanceID := handle.InstanceID()
	if err := o.jobs.SetJobSandbox(ctx, nil, job.ID, instanceID); err != nil {
		o.pool.Release(o.templateID)
		return o.fail(ctx, job.ID, fmt.Sprintf("failed to record sandbox: %v", err), false)
	}
	if err := o.mergeMetadata(ctx, job.ID, map[string]any{"sandboxId": instanceID}); err != nil {
		o.pool.Release(o.templateID)
		return o.fail(ctx, job.ID, fmt.Sprintf("failed to persist sandbox metadata: %v", err), false)
	}

	if cancelled, err := o.cancelRequested(ctx, job.ID); err != nil {
		o.pool.Release(o.templateID)
		return err
	} else if cancelled {
		return o.finishCancel(ctx, job.ID, true)
	}

	// Step 3: deploy and execute the artifact inside the sandbox.
	result, err := handle.Run(ctx, code)
	if err != nil {
		span.RecordError(err)
		// The sandbox may be corrupted; destroy instead of releasing.
		return o.fail(ctx, job.ID, fmt.Sprintf("sandbox execution failed: %v", err), true)
	}
	if result.ExitCode != 0 {
		return o.fail(ctx, job.ID, fmt.Sprintf("sandbox execution exited with code %d", result.ExitCode), true)
	}

	if cancelled, err := o.cancelRequested(ctx, job.ID); err != nil {
		o.pool.Release(o.templateID)
		return err
	} else if cancelled {
		return o.finishCancel(ctx, job.ID, true)
	}

	// Step 4: resolve the public preview URL from the instance id.
	previewURL := o.pool.ResolveURL(o.templateID)

	elapsed := o.now().Sub(start)
	span.SetAttributes(attribute.Int64("job.execution_ms", elapsed.Milliseconds()))

	patch := map[string]any{
		"executionTimeMs": elapsed.Milliseconds(),
		"completedAt":     o.now().UTC().Format(time.RFC3339),
	}
	if previewURL != "" {
		patch["previewUrl"] = previewURL
	}
	if err := o.mergeMetadata(ctx, job.ID, patch); err != nil {
		o.pool.Release(o.templateID)
		return o.fail(ctx, job.ID, fmt.Sprintf("failed to persist result metadata: %v", err), false)
	}

	// Step 5: persist success.
	if err := o.jobs.SetJobStatus(ctx, nil, job.ID, store.JobStatusCompleted, &code, nil); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			// A cancellation won the race. This process holds the handle,
			// so the teardown happens here too.
			if destroyErr := o.pool.Destroy(ctx, o.templateID); destroyErr != nil {
				o.logger.Error("sandbox teardown failed after cancelled completion", "job_id", job.ID, "error", destroyErr)
			}
			return nil
		}
		o.pool.Release(o.templateID)
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	o.pool.Release(o.templateID)

	o.logger.Info("job completed",
		"job_id", job.ID,
		"owner_id", job.OwnerID,
		"execution_ms", elapsed.Milliseconds(),
		"preview_url", previewURL,
	)
	return nil
}

// Cancel requests cancellation: ownership check, then CANCELLING. The
// worker running the job observes the marker at its next checkpoint,
// tears down the sandbox it holds and completes the move to CANCELLED;
// a job cancelled before pickup is finished by the pickup path instead.
// Cancelling an already-terminal job is a no-op returning success.
func (o *Orchestrator) Cancel(ctx context.Context, jobID uuid.UUID, ownerID, sandboxKey string) error {
	job, err := o.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.OwnerID != ownerID {
		return ErrNotOwner
	}
	if job.Status.IsTerminal() {
		return nil
	}

	if err := o.jobs.SetJobStatus(ctx, nil, jobID, store.JobStatusCancelling, nil, nil); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			return nil
		}
		return fmt.Errorf("failed to mark job cancelling: %w", err)
	}

	// Pooled handles are torn down by the process that owns them, so no
	// teardown happens here unless the caller named a specific key.
	// A job that never acquired a sandbox has nothing to tear down.
	if sandboxKey != "" {
		if err := o.pool.Destroy(ctx, sandboxKey); err != nil {
			// Teardown failures never block cancellation.
			o.logger.Error("sandbox teardown failed during cancel", "job_id", jobID, "key", sandboxKey, "error", err)
			if mergeErr := o.mergeMetadata(ctx, jobID, map[string]any{"teardownError": err.Error()}); mergeErr != nil {
				o.logger.Error("failed to record teardown error", "job_id", jobID, "error", mergeErr)
			}
		}
	}

	o.logger.Info("job cancellation requested", "job_id", jobID)
	return nil
}

// finishCancel completes the CANCELLING -> CANCELLED transition. When
// destroySandbox is set the handle this process borrowed is torn down
// first. Runs in the worker, which owns the job's sandbox handle.
func (o *Orchestrator) finishCancel(ctx context.Context, jobID uuid.UUID, destroySandbox bool) error {
	if destroySandbox {
		if err := o.pool.Destroy(ctx, o.templateID); err != nil {
			o.logger.Error("sandbox teardown failed during cancel", "job_id", jobID, "error", err)
			if mergeErr := o.mergeMetadata(ctx, jobID, map[string]any{"teardownError": err.Error()}); mergeErr != nil {
				o.logger.Error("failed to record teardown error", "job_id", jobID, "error", mergeErr)
			}
		}
	}

	if err := o.jobs.SetJobStatus(ctx, nil, jobID, store.JobStatusCancelled, nil, nil); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			// Another process completed the cancellation already.
			return nil
		}
		return fmt.Errorf("failed to mark job cancelled: %w", err)
	}

	if err := o.mergeMetadata(ctx, jobID, map[string]any{"cancelledAt": o.now().UTC().Format(time.RFC3339)}); err != nil {
		o.logger.Error("failed to record cancellation time", "job_id", jobID, "error", err)
	}

	o.logger.Info("job cancelled", "job_id", jobID)
	return nil
}

// fail writes the error detail once and moves the job to FAILED. When
// sandboxCorrupted is set the sandbox is destroyed; otherwise an
// acquired handle is released back to the pool by the caller.
func (o *Orchestrator) fail(ctx context.Context, jobID uuid.UUID, detail string, sandboxCorrupted bool) error {
	if sandboxCorrupted {
		if err := o.pool.Destroy(ctx, o.templateID); err != nil {
			o.logger.Error("failed to destroy corrupted sandbox", "job_id", jobID, "error", err)
		}
	}

	if err := o.jobs.SetJobStatus(ctx, nil, jobID, store.JobStatusFailed, nil, &detail); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			return nil
		}
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	o.logger.Warn("job failed", "job_id", jobID, "detail", detail)
	return nil
}

// cancelRequested re-reads the job status between steps. Both the
// CANCELLING marker and an already-final CANCELLED stop the run; in the
// latter case finishCancel still tears down the handle this process
// holds and then observes the terminal row as a no-op.
func (o *Orchestrator) cancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error) {
	job, err := o.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to re-check job status: %w", err)
	}
	return job.Status == store.JobStatusCancelling || job.Status == store.JobStatusCancelled, nil
}

func (o *Orchestrator) mergeMetadata(ctx context.Context, jobID uuid.UUID, patch map[string]any) error {
	if err := o.jobs.MergeJobMetadata(ctx, nil, jobID, patch); err != nil {
		return fmt.Errorf("failed to merge job metadata: %w", err)
	}
	return nil
}
