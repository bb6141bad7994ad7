package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/nondisposable/internal/auth"
	"github.com/ignite/nondisposable/internal/config"
	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/service/disposable"
)

// Refresher runs a blocklist refresh on demand.
type Refresher interface {
	Update(ctx context.Context) (disposable.Result, error)
}

// DomainLister is the read side of the domain store exposed over HTTP.
type DomainLister interface {
	List(ctx context.Context, limit, offset int) ([]domain.DisposableDomain, error)
	Count(ctx context.Context) (int, error)
}

// Deps bundles the services the API serves.
type Deps struct {
	Checker   *disposable.Checker
	Validator *disposable.Validator
	Refresher Refresher
	Store     DomainLister
	Rules     *disposable.RulesHolder
	// Auth guards the admin routes; nil rejects every admin request.
	Auth *auth.AuthManager
	// Metrics serves /metrics; defaults to the Prometheus default registry.
	Metrics http.Handler
}

// Server represents the API server
type Server struct {
	config   config.ServerConfig
	handlers *Handlers
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires handlers and routes.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	h := NewHandlers(deps)
	return &Server{
		config:   cfg,
		handlers: h,
		router:   SetupRoutes(h, cfg.AllowedOrigins, deps.Auth),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Synchronous refreshes can take as long as a blocklist download.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.router
}
