// Package core provides the API chassis for the ZapNest payment service.
// It creates a chi router usable both as a standard HTTP server (local dev)
// and behind the API Gateway Lambda adapter. It enforces cross-cutting
// concerns (panic recovery, request IDs, logging, CORS, metrics) before
// requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zapnest/internal/config"
)

// Server encapsulates all dependencies for the API, allowing for easy
// injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are executed by GET /health.
	HealthProbes []HealthProbe

	// RouteRegistrars are mounted under /api by MountRoutes.
	RouteRegistrars []RouteRegistrar

	// Closers are released in order on Shutdown (e.g. the database pool).
	Closers []func()

	router *chi.Mux
}

// NewServer prepares the server for route mounting. The caller mounts routes
// (via MountRoutes) after setting optional dependencies.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server resources registered in Closers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")
	for _, closeFn := range s.Closers {
		closeFn()
	}
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
