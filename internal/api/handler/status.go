package handler

import (
	"errors"
	"net/http"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/api/respond"
)

// GetStatus reports the scheduler state and queue depth counters.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"STATUS_FAILED", "Failed to read queue stats", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"scheduler": h.scheduler.Status(),
		"queue":     stats,
		"dry_run":   h.cfg.DryRun,
	})
}

// ForceRun triggers an immediate check cycle. Responds 409 when a cycle is
// already in flight.
func (h *Handler) ForceRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.ForceRun(r.Context())
	if err != nil {
		if errors.Is(err, alerts.ErrCycleRunning) {
			respond.WriteError(w, http.StatusConflict,
				"CYCLE_RUNNING", "A check cycle is already running")
			return
		}
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"CYCLE_FAILED", "Check cycle failed", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, result)
}

// ResetStats zeroes the scheduler's cumulative counters.
func (h *Handler) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.scheduler.ResetStats()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status": "reset",
	})
}
