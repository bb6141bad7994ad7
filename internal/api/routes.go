package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/nondisposable/internal/auth"
	"github.com/ignite/nondisposable/internal/config"
)

// SetupRoutes configures all API routes. Lookups stay public; routes that
// change state sit behind authManager. A nil authManager rejects every
// admin request.
func SetupRoutes(h *Handlers, allowedOrigins []string, authManager *auth.AuthManager) *chi.Mux {
	if authManager == nil {
		authManager = auth.NewAuthManager(config.AuthConfig{})
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/check", h.CheckEmail)
		r.Get("/check/domains/{domain}", h.CheckDomain)
		r.Post("/validate", h.Validate)

		r.Get("/domains", h.ListDomains)
		r.Get("/rules", h.GetRules)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authManager.RequireAuth)
			r.Post("/refresh", h.Refresh)
			r.Put("/rules", h.PutRules)
		})
	})

	return r
}
