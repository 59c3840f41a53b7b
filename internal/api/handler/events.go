package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/albapepper/dealwatch/internal/api/respond"
	"github.com/albapepper/dealwatch/internal/cache"
)

// GetEvents lists the most recently detected events, newest first.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respond.WriteError(w, http.StatusBadRequest, "BAD_LIMIT", "limit must be 1-500")
			return
		}
		limit = n
	}

	cacheKey := "events:" + strconv.Itoa(limit)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLEvents, true)
		return
	}

	events, err := h.events.RecentEvents(r.Context(), limit)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"EVENTS_FAILED", "Failed to load events", err.Error())
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode events")
		return
	}

	etag := h.cache.Set(cacheKey, data, cache.TTLEvents)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLEvents, false)
}
