// Package provider defines the SandboxProvider capability and its
// backends. A provider turns a template identifier into a running remote
// execution environment.
package provider

import (
	"context"
	"fmt"
)

// Provider creates sandbox instances from a template identifier.
type Provider interface {
	// Create provisions a new instance. The context bounds the creation;
	// implementations must not keep provisioning after it is done.
	Create(ctx context.Context, template string) (Instance, error)
}

// Instance is a single running sandbox.
type Instance interface {
	// ID returns the physical instance id assigned by the provider.
	ID() string

	// Run deploys the given code inside the instance and executes it.
	Run(ctx context.Context, code string) (*RunResult, error)

	// Kill tears the instance down. Safe to call more than once.
	Kill(ctx context.Context) error
}

// RunResult is the outcome of executing code inside an instance.
type RunResult struct {
	Output   string
	ExitCode int
}

// Kind identifies a provider backend. The set is closed; selection is a
// total function from kind to constructor.
type Kind string

const (
	// KindHTTP talks to a remote sandbox service over its REST API.
	KindHTTP Kind = "http"
	// KindDocker runs sandboxes as local containers, for development.
	KindDocker Kind = "docker"
)

// Config carries backend-specific settings.
type Config struct {
	// BaseURL is the remote sandbox service endpoint (http backend).
	BaseURL string
	// APIKey authenticates against the remote service (http backend).
	APIKey string
}

// New constructs the provider for the given kind.
func New(kind Kind, cfg Config) (Provider, error) {
	switch kind {
	case KindHTTP:
		return NewHTTPProvider(cfg.BaseURL, cfg.APIKey), nil
	case KindDocker:
		return NewDockerProvider()
	default:
		return nil, fmt.Errorf("unknown sandbox provider kind %q", kind)
	}
}
