// Package generator defines the CodeGenerator capability: prompt in,
// code text out. The actual model call is an external collaborator;
// this package only wraps it with classification and bounded retry.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Generator produces application code from a natural-language prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TransientError marks a provider failure worth retrying: timeouts,
// overload, 5xx-equivalents. Content failures are never transient.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient generation error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Retry attempt policy for transient provider failures.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 2 * time.Second
)

// Retrying wraps a Generator with a small fixed retry bound applied only
// to transient failures.
type Retrying struct {
	inner       Generator
	maxAttempts int
	backoff     time.Duration
}

// WithRetry wraps gen with the default retry policy.
func WithRetry(gen Generator) *Retrying {
	return &Retrying{inner: gen, maxAttempts: defaultMaxAttempts, backoff: defaultRetryBackoff}
}

func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		code, err := r.inner.Generate(ctx, prompt)
		if err == nil {
			return code, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return "", err
		}
		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", r.maxAttempts, lastErr)
}
