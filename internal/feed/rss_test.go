package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/albapepper/dealwatch/internal/alerts"
)

func TestRenderRSS(t *testing.T) {
	items := []Item{
		{
			Title:       "Price drop: Widget now $15.00",
			Link:        "https://example.com/widget",
			Description: "Widget fell to $15.00",
			PublishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Title:       "Back in stock: Gadget",
			Link:        "https://example.com/gadget",
			Description: "Gadget restocked",
			PublishedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		},
	}

	xml, err := RenderRSS("Dealwatch — all deals", "https://deals.example.com/feeds/public.xml", items)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<rss", "Dealwatch", "Price drop: Widget now $15.00",
		"https://example.com/widget", "Back in stock: Gadget",
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("rss missing %q", want)
		}
	}
}

func TestRenderRSSEmpty(t *testing.T) {
	xml, err := RenderRSS("Dealwatch", "https://deals.example.com/feeds/public.xml", nil)
	if err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.Contains(xml, "<rss") {
		t.Error("empty feed should still be a valid rss document")
	}
}

func TestItemFromEvent(t *testing.T) {
	ev := alerts.Event{
		ID:          "ev-1",
		ProductName: "Widget",
		ProductURL:  "https://example.com/widget",
		Retailer:    "walmart",
		Category:    "tools",
		Type:        alerts.EventPriceChange,
		OldPrice:    20,
		NewPrice:    15,
		DetectedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	item := ItemFromEvent(ev)
	if item.Link != ev.ProductURL {
		t.Errorf("link %q, want %q", item.Link, ev.ProductURL)
	}
	if !item.PublishedAt.Equal(ev.DetectedAt) {
		t.Errorf("published at %v, want detection time %v", item.PublishedAt, ev.DetectedAt)
	}
	if item.Category != "tools" {
		t.Errorf("category %q, want tools", item.Category)
	}
	if !strings.Contains(item.Title, "Widget") {
		t.Errorf("title %q missing product name", item.Title)
	}
}
