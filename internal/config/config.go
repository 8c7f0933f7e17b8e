// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// NATS endpoint for the dispatch bus
	NATSURL string

	// OTLP endpoint for trace export, empty disables tracing
	OTELEndpoint string

	// Worker-specific configuration
	WorkerConcurrency int
	JobTimeout        time.Duration

	// Sandbox provider selection and tuning
	SandboxProvider      string
	SandboxServiceURL    string
	SandboxAPIKey        string
	SandboxTemplateID    string
	SandboxBaseDomain    string
	SandboxCreateTimeout time.Duration
	SandboxMaxIdleAge    time.Duration
	SweepInterval        time.Duration

	// Code generation endpoint (OpenAI-compatible gateway)
	ModelEndpoint string
	ModelAPIKey   string

	// Per-user API rate limit
	RateLimitRPS   float64
	RateLimitBurst int

	// APITokens maps raw API tokens to user ids, parsed from
	// "token=user,token=user" form.
	APITokens map[string]string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:             6161,
		NATSURL:              "nats://localhost:4222",
		WorkerConcurrency:    2,
		JobTimeout:           30 * time.Minute,
		SandboxProvider:      "http",
		SandboxBaseDomain:    "e2b.dev",
		SandboxCreateTimeout: 5 * time.Minute,
		SandboxMaxIdleAge:    time.Hour,
		SweepInterval:        5 * time.Minute,
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		APITokens:            map[string]string{},
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.HTTPPort = p
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	cfg.OTELEndpoint = os.Getenv("OTEL_ENDPOINT")

	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		c, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
		}
		cfg.WorkerConcurrency = c
	}

	if v := os.Getenv("JOB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
		}
		cfg.JobTimeout = d
	}

	if v := os.Getenv("SANDBOX_PROVIDER"); v != "" {
		cfg.SandboxProvider = v
	}
	cfg.SandboxServiceURL = os.Getenv("SANDBOX_SERVICE_URL")
	cfg.SandboxAPIKey = os.Getenv("SANDBOX_API_KEY")

	cfg.SandboxTemplateID = os.Getenv("SANDBOX_TEMPLATE_ID")
	if cfg.SandboxTemplateID == "" {
		cfg.SandboxTemplateID = "5iyfxo657up507oy9eay"
	}
	if v := os.Getenv("SANDBOX_BASE_DOMAIN"); v != "" {
		cfg.SandboxBaseDomain = v
	}

	for name, target := range map[string]*time.Duration{
		"SANDBOX_CREATE_TIMEOUT": &cfg.SandboxCreateTimeout,
		"SANDBOX_MAX_IDLE_AGE":   &cfg.SandboxMaxIdleAge,
		"SWEEP_INTERVAL":         &cfg.SweepInterval,
	} {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", name, err)
			}
			*target = d
		}
	}

	cfg.ModelEndpoint = os.Getenv("MODEL_ENDPOINT")
	cfg.ModelAPIKey = os.Getenv("MODEL_API_KEY")

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = b
	}

	if v := os.Getenv("API_TOKENS"); v != "" {
		tokens, err := parseTokens(v)
		if err != nil {
			return nil, err
		}
		cfg.APITokens = tokens
	}

	return cfg, nil
}

// parseTokens parses "token=user,token=user" pairs.
func parseTokens(raw string) (map[string]string, error) {
	tokens := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, "=")
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("invalid API_TOKENS entry %q", pair)
		}
		tokens[token] = user
	}
	return tokens, nil
}
