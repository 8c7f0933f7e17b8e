// Package main is the entry point for the vibeplane controller.
// The controller is the synchronous API surface: admission, job
// submission, status, cancellation and credit queries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vibeplane/internal/auth"
	"vibeplane/internal/bus"
	"vibeplane/internal/config"
	"vibeplane/internal/controller"
	"vibeplane/internal/controller/handlers"
	"vibeplane/internal/credits"
	"vibeplane/internal/generator"
	"vibeplane/internal/logger"
	"vibeplane/internal/observability"
	"vibeplane/internal/orchestrator"
	"vibeplane/internal/sandbox"
	"vibeplane/internal/sandbox/provider"
	"vibeplane/internal/store/postgres"

	"github.com/joho/godotenv"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New("controller")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup Database
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(store.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "vibeplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

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

	// Dispatch bus
	busClient, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer busClient.Close()

	// The controller owns admission and cancellation requests. Job
	// sandboxes are torn down by the worker holding them; this pool only
	// backs explicit sandbox-key teardown from the cancel API.
	sandboxProvider, err := provider.New(provider.Kind(cfg.SandboxProvider), provider.Config{
		BaseURL: cfg.SandboxServiceURL,
		APIKey:  cfg.SandboxAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to create sandbox provider: %v", err)
	}
	pool := sandbox.NewPool(sandboxProvider, sandbox.PoolConfig{
		CreateTimeout: cfg.SandboxCreateTimeout,
		MaxIdleAge:    cfg.SandboxMaxIdleAge,
		BaseDomain:    cfg.SandboxBaseDomain,
	}, slogger)

	ledger := credits.NewLedger(store, slogger)
	factory := func(model generator.Model) generator.Generator {
		return generator.NewClient(cfg.ModelEndpoint, cfg.ModelAPIKey, model)
	}
	orch := orchestrator.New(store, ledger, pool, factory, busClient, cfg.SandboxTemplateID, slogger)

	authenticator := auth.NewStaticAuthenticator(cfg.APITokens)
	h := handlers.New(store, orch, ledger, busClient, store)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(controller.Config{
		Addr:           addr,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MetricsHandler: metricsHandler,
	}, h, authenticator)

	go func() {
		log.Printf("Vibeplane Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
