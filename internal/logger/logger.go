// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// jobIDKey is the context key for job correlation IDs.
type jobIDKey struct{}

// New creates a new structured JSON logger tagged with the component name.
func New(component string) *slog.Logger {
	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return l.With("component", component)
}

// WithJobID returns a new context carrying the given job ID.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

// JobIDFromContext extracts the job ID from the context.
func JobIDFromContext(ctx context.Context) string {
	if v := ctx.Value(jobIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (job ID, etc.) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if jobID := JobIDFromContext(ctx); jobID != "" {
		return base.With("job_id", jobID)
	}
	return base
}
