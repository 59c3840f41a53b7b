package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/api/respond"
	"github.com/albapepper/dealwatch/internal/catalog"
)

// createProductRequest is the manual item submission payload.
type createProductRequest struct {
	SubscriberID    string   `json:"subscriber_id" validate:"required"`
	URL             string   `json:"url" validate:"required,url"`
	Retailer        string   `json:"retailer" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Category        string   `json:"category"`
	TargetPrice     *float64 `json:"target_price" validate:"omitempty,gt=0"`
	IntervalSeconds int      `json:"check_interval_seconds" validate:"omitempty,gte=60"`
}

// CreateProduct adds a product to the watch catalog. Manual submission is a
// yearly-tier privilege; everyone else gets 403.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_JSON", "Malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest,
			"VALIDATION_FAILED", "Invalid product submission", err.Error())
		return
	}

	tier, err := h.subs.Tier(r.Context(), req.SubscriberID)
	if err != nil {
		respond.WriteError(w, http.StatusForbidden,
			"UNKNOWN_SUBSCRIBER", "Subscriber not found or inactive")
		return
	}
	if !alerts.CanSubmitItems(tier) {
		respond.WriteError(w, http.StatusForbidden,
			"TIER_FORBIDDEN", "Manual item submission requires the yearly tier")
		return
	}

	p := catalog.Product{
		URL:           req.URL,
		Retailer:      req.Retailer,
		Name:          req.Name,
		Category:      req.Category,
		TargetPrice:   req.TargetPrice,
		CheckInterval: time.Duration(req.IntervalSeconds) * time.Second,
	}
	id, err := h.products.Create(r.Context(), p)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"CREATE_FAILED", "Failed to create product", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusCreated, map[string]interface{}{
		"id": id,
	})
}

// ReactivateProduct clears a failed product back into the check rotation.
func (h *Handler) ReactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_ID", "Product id must be an integer")
		return
	}

	if err := h.scheduler.Reactivate(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respond.WriteError(w, http.StatusNotFound,
				"NOT_FOUND", "No failed product with that id")
			return
		}
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"REACTIVATE_FAILED", "Failed to reactivate product", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": "active",
	})
}
