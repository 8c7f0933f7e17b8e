// Package worker contains the event consumer that executes generation jobs.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vibeplane/internal/bus"
	"vibeplane/internal/orchestrator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config holds configuration for the worker.
type Config struct {
	ID          string
	Concurrency int
	// JobTimeout bounds a single job run end to end (default: 30m).
	JobTimeout time.Duration
}

// Worker consumes generation events from the bus and drives each one
// through the orchestrator. Each job executes as an independently
// scheduled unit of work, bounded by a concurrency semaphore.
type Worker struct {
	orch   *orchestrator.Orchestrator
	bus    *bus.Client
	config Config
	logger *slog.Logger
	done   chan struct{}
}

// New creates a new worker.
func New(orch *orchestrator.Orchestrator, b *bus.Client, config Config, logger *slog.Logger) *Worker {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Minute
	}

	return &Worker{
		orch:   orch,
		bus:    b,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run subscribes to the generation subject and blocks until the context
// is cancelled. On shutdown it stops accepting new events and lets
// in-flight jobs finish.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting", "id", w.config.ID, "concurrency", w.config.Concurrency)

	sem := make(chan struct{}, w.config.Concurrency)
	var wg sync.WaitGroup

	sub, err := w.bus.SubscribeGenerate(func(event orchestrator.GenerateEvent) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.process(event)
		}()
	}, func(err error) {
		w.logger.Error("failed to decode generation event", "error", err)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	w.logger.Info("context cancelled, waiting for running jobs to finish")
	if err := sub.Unsubscribe(); err != nil {
		w.logger.Error("failed to unsubscribe", "error", err)
	}
	wg.Wait()
	close(w.done)

	return ctx.Err()
}

// Done returns a channel that is closed when the worker has fully stopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// process runs one event to completion. The job context is independent
// of the worker's run context: a job in flight finishes even if SIGTERM
// arrives (graceful drain).
func (w *Worker) process(event orchestrator.GenerateEvent) {
	tracer := otel.Tracer("worker")
	ctx, cancel := context.WithTimeout(context.Background(), w.config.JobTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "consume_generation_event",
		trace.WithAttributes(
			attribute.String("event.owner", event.OwnerID),
			attribute.String("event.model", event.Model),
			attribute.String("event.job_id", event.JobID),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	job, err := w.orch.Resolve(ctx, event)
	if err != nil {
		span.RecordError(err)
		w.logger.Error("failed to resolve job for event", "job_id", event.JobID, "error", err)
		return
	}

	w.logger.Info("processing job", "job_id", job.ID, "owner_id", job.OwnerID)

	if err := w.orch.Run(ctx, job); err != nil {
		span.RecordError(err)
		w.logger.Error("job run failed", "job_id", job.ID, "error", err)
	}
}
