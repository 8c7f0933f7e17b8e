package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Check defaults
	if cfg.HTTPPort != 6161 {
		t.Errorf("expected HTTPPort 6161, got %d", cfg.HTTPPort)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("expected NATSURL nats://localhost:4222, got %s", cfg.NATSURL)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Errorf("expected WorkerConcurrency 2, got %d", cfg.WorkerConcurrency)
	}
	if cfg.JobTimeout != 30*time.Minute {
		t.Errorf("expected JobTimeout 30m, got %v", cfg.JobTimeout)
	}
	if cfg.SandboxProvider != "http" {
		t.Errorf("expected SandboxProvider http, got %s", cfg.SandboxProvider)
	}
	if cfg.SandboxTemplateID != "5iyfxo657up507oy9eay" {
		t.Errorf("unexpected SandboxTemplateID %s", cfg.SandboxTemplateID)
	}
	if cfg.SandboxBaseDomain != "e2b.dev" {
		t.Errorf("expected SandboxBaseDomain e2b.dev, got %s", cfg.SandboxBaseDomain)
	}
	if cfg.SandboxCreateTimeout != 5*time.Minute {
		t.Errorf("expected SandboxCreateTimeout 5m, got %v", cfg.SandboxCreateTimeout)
	}
	if cfg.SandboxMaxIdleAge != time.Hour {
		t.Errorf("expected SandboxMaxIdleAge 1h, got %v", cfg.SandboxMaxIdleAge)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("expected SweepInterval 5m, got %v", cfg.SweepInterval)
	}
	if cfg.RateLimitRPS != 5 {
		t.Errorf("expected RateLimitRPS 5, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst != 10 {
		t.Errorf("expected RateLimitBurst 10, got %d", cfg.RateLimitBurst)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("PORT", "9999")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("WORKER_CONCURRENCY", "5")
	t.Setenv("JOB_TIMEOUT", "10m")
	t.Setenv("SANDBOX_PROVIDER", "docker")
	t.Setenv("SANDBOX_TEMPLATE_ID", "custom-template")
	t.Setenv("SANDBOX_BASE_DOMAIN", "sandbox.internal")
	t.Setenv("SANDBOX_CREATE_TIMEOUT", "90s")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("OTEL_ENDPOINT", "otel-collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.NATSURL != "nats://broker:4222" {
		t.Errorf("expected NATSURL nats://broker:4222, got %s", cfg.NATSURL)
	}
	if cfg.WorkerConcurrency != 5 {
		t.Errorf("expected WorkerConcurrency 5, got %d", cfg.WorkerConcurrency)
	}
	if cfg.JobTimeout != 10*time.Minute {
		t.Errorf("expected JobTimeout 10m, got %v", cfg.JobTimeout)
	}
	if cfg.SandboxProvider != "docker" {
		t.Errorf("expected SandboxProvider docker, got %s", cfg.SandboxProvider)
	}
	if cfg.SandboxTemplateID != "custom-template" {
		t.Errorf("expected SandboxTemplateID custom-template, got %s", cfg.SandboxTemplateID)
	}
	if cfg.SandboxBaseDomain != "sandbox.internal" {
		t.Errorf("expected SandboxBaseDomain sandbox.internal, got %s", cfg.SandboxBaseDomain)
	}
	if cfg.SandboxCreateTimeout != 90*time.Second {
		t.Errorf("expected SandboxCreateTimeout 90s, got %v", cfg.SandboxCreateTimeout)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("expected SweepInterval 1m, got %v", cfg.SweepInterval)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SWEEP_INTERVAL", "five minutes")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoad_APITokens(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("API_TOKENS", "tok-a=user-1, tok-b=user-2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.APITokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(cfg.APITokens))
	}
	if cfg.APITokens["tok-a"] != "user-1" {
		t.Errorf("got user %q for tok-a, want user-1", cfg.APITokens["tok-a"])
	}
	if cfg.APITokens["tok-b"] != "user-2" {
		t.Errorf("got user %q for tok-b, want user-2", cfg.APITokens["tok-b"])
	}
}

func TestLoad_MalformedAPITokens(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("API_TOKENS", "just-a-token")

	_, err := Load()
	if err == nil {
		t.Error("expected error for malformed token pair")
	}
}
