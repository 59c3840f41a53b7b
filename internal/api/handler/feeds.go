package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/dealwatch/internal/api/respond"
	"github.com/albapepper/dealwatch/internal/cache"
	"github.com/albapepper/dealwatch/internal/feed"
)

// PublicFeed serves the aggregate RSS feed of every detected event.
func (h *Handler) PublicFeed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, nil, "Dealwatch — all deals", "/feeds/public.xml")
}

// SubscriberFeed serves one subscriber's personal RSS feed: only the events
// that were delivered to them, so tier delays are already applied.
func (h *Handler) SubscriberFeed(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "subscriberID")
	if subID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_SUBSCRIBER", "Missing subscriber id")
		return
	}
	h.serveFeed(w, r, &subID, "Dealwatch — your deals", "/feeds/"+subID+".xml")
}

func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request, owner *string, title, path string) {
	cacheKey := "feed:public"
	if owner != nil {
		cacheKey = "feed:" + *owner
	}

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteXML(w, data, etag, cache.TTLFeed, true)
		return
	}

	items, err := h.feeds.ItemsFor(r.Context(), owner)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"FEED_FAILED", "Failed to load feed items", err.Error())
		return
	}

	xml, err := feed.RenderRSS(title, h.cfg.FeedBaseURL+path, items)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError,
			"FEED_RENDER_FAILED", "Failed to render feed", err.Error())
		return
	}

	data := []byte(xml)
	etag := h.cache.Set(cacheKey, data, cache.TTLFeed)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteXML(w, data, etag, cache.TTLFeed, false)
}
