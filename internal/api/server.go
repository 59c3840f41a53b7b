// Package api wires the chi router: middleware stack, operational endpoints,
// manual product submission, and the RSS feed surface.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/albapepper/dealwatch/internal/api/handler"
	"github.com/albapepper/dealwatch/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(h *handler.Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Scheduler lifecycle
		r.Get("/status", h.GetStatus)
		r.Post("/run", h.ForceRun)
		r.Post("/run/reset-stats", h.ResetStats)

		// Catalog
		r.Post("/products", h.CreateProduct)
		r.Post("/products/{id}/reactivate", h.ReactivateProduct)

		// Events
		r.Get("/events", h.GetEvents)
	})

	// RSS feeds
	r.Route("/feeds", func(r chi.Router) {
		r.Get("/public.xml", h.PublicFeed)
		r.Get("/{subscriberID}.xml", h.SubscriberFeed)
	})

	return r
}
