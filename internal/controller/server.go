// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"vibeplane/internal/auth"
	"vibeplane/internal/controller/handlers"
	"vibeplane/internal/controller/middleware"
)

// Config tunes the HTTP surface.
type Config struct {
	Addr string
	// Per-user request rate limit.
	RateLimitRPS   float64
	RateLimitBurst int
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(cfg Config, h *handlers.Handlers, authenticator auth.Authenticator) *Server {
	authMW := middleware.AuthMiddleware(authenticator)
	rateMW := middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	authed := func(hf http.HandlerFunc) http.Handler {
		return authMW(rateMW(hf))
	}

	mux := http.NewServeMux()

	// Public authenticated apis
	mux.Handle("POST /jobs", authed(h.SubmitJob))
	mux.Handle("GET /jobs", authed(h.ListJobs))
	mux.Handle("GET /jobs/stats", authed(h.GetJobStats))
	mux.Handle("GET /jobs/{id}", authed(h.GetJob))
	mux.Handle("POST /jobs/{id}/cancel", authed(h.CancelJob))
	mux.Handle("GET /credits", authed(h.GetCreditStatus))

	// Internal endpoints. Authenticated like the public surface: the
	// trigger path bypasses admission, so it must never be anonymous.
	mux.Handle("POST /internal/jobs/trigger", authed(h.TriggerJob))

	mux.HandleFunc("GET /healthz", h.Health)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
