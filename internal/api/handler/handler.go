// Package handler provides HTTP handlers for all API endpoints. Handlers sit
// directly on the stores and the scheduler — no service layer.
package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/api/respond"
	"github.com/albapepper/dealwatch/internal/cache"
	"github.com/albapepper/dealwatch/internal/catalog"
	"github.com/albapepper/dealwatch/internal/config"
	"github.com/albapepper/dealwatch/internal/db"
	"github.com/albapepper/dealwatch/internal/feed"
	"github.com/albapepper/dealwatch/internal/monitor"
	"github.com/albapepper/dealwatch/internal/subscriber"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool      *db.Pool
	cache     *cache.Cache
	cfg       *config.Config
	scheduler *monitor.Scheduler
	queue     *alerts.Queue
	events    *alerts.Store
	products  *catalog.Store
	subs      *subscriber.Directory
	feeds     *feed.Store
	validate  *validator.Validate
}

// New creates a Handler with shared dependencies.
func New(
	pool *db.Pool,
	c *cache.Cache,
	cfg *config.Config,
	scheduler *monitor.Scheduler,
	queue *alerts.Queue,
	events *alerts.Store,
	products *catalog.Store,
	subs *subscriber.Directory,
	feeds *feed.Store,
) *Handler {
	return &Handler{
		pool:      pool,
		cache:     c,
		cfg:       cfg,
		scheduler: scheduler,
		queue:     queue,
		events:    events,
		products:  products,
		subs:      subs,
		feeds:     feeds,
		validate:  validator.New(),
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Dealwatch API",
		"version": "1.0.0",
		"status":  "running",
		"feeds":   "/feeds/public.xml",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable,
			"DB_UNAVAILABLE", "Database unreachable", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// HealthCheckCache reports cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.cache.Stats())
}
