package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"webpoptimizer/internal/middleware"
)

// RouteOptions configures the middleware stack around the routes.
type RouteOptions struct {
	Auth      middleware.Authenticator
	RateLimit *middleware.RateLimiter
}

// Router builds the full chi router.
func (h *Handler) Router(opts RouteOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(h.logger))
	h.RegisterRoutes(r, opts)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router, opts RouteOptions) {
	// Health check
	r.Get("/health", h.HealthCheck)

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit.Middleware())
		}
		r.Use(middleware.RequireAdmin(opts.Auth, h.logger))

		r.Post("/uploads", h.Upload)
		r.Get("/attachments", h.ListAttachments)
		r.Post("/convert", h.Convert)
		r.Get("/stats", h.Stats)
	})
}
