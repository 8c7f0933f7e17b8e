// Package main is the entry point for the vibeplane worker.
// The worker consumes generation events, runs the orchestrator for each
// job and owns the sandbox pool plus its eviction sweep.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vibeplane/internal/bus"
	"vibeplane/internal/config"
	"vibeplane/internal/credits"
	"vibeplane/internal/generator"
	"vibeplane/internal/logger"
	"vibeplane/internal/observability"
	"vibeplane/internal/orchestrator"
	"vibeplane/internal/sandbox"
	"vibeplane/internal/sandbox/provider"
	"vibeplane/internal/store/postgres"
	"vibeplane/internal/worker"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New("worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "vibeplane-worker", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Select sandbox provider based on configuration
	sandboxProvider, err := provider.New(provider.Kind(cfg.SandboxProvider), provider.Config{
		BaseURL: cfg.SandboxServiceURL,
		APIKey:  cfg.SandboxAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to create sandbox provider: %v", err)
	}
	log.Printf("Using %s sandbox provider", cfg.SandboxProvider)

	pool := sandbox.NewPool(sandboxProvider, sandbox.PoolConfig{
		CreateTimeout: cfg.SandboxCreateTimeout,
		MaxIdleAge:    cfg.SandboxMaxIdleAge,
		BaseDomain:    cfg.SandboxBaseDomain,
	}, slogger)

	sweeper, err := sandbox.NewSweeper(pool, cfg.SweepInterval, slogger)
	if err != nil {
		log.Fatalf("Failed to create sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	ledger := credits.NewLedger(store, slogger)
	factory := func(model generator.Model) generator.Generator {
		return generator.NewClient(cfg.ModelEndpoint, cfg.ModelAPIKey, model)
	}

	busClient, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer busClient.Close()

	orch := orchestrator.New(store, ledger, pool, factory, busClient, cfg.SandboxTemplateID, slogger)

	w := worker.New(orch, busClient, worker.Config{
		ID:          uuid.NewString(),
		Concurrency: cfg.WorkerConcurrency,
		JobTimeout:  cfg.JobTimeout,
	}, slogger)

	log.Printf("Worker started with concurrency %d", cfg.WorkerConcurrency)
	go w.Run(ctx)

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Start a dedicated metrics server on port 6162
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		log.Println("Worker metrics listening on :6162")
		if err := http.ListenAndServe(":6162", mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	<-w.Done()
}
