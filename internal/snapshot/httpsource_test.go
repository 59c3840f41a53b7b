package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/dealwatch/internal/catalog"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestExtractPrice(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		selector string
		want     float64
		wantErr  bool
	}{
		{
			name:     "plain text price",
			html:     `<span class="price">$19.99</span>`,
			selector: ".price",
			want:     19.99,
		},
		{
			name:     "itemprop content attribute wins",
			html:     `<meta itemprop="price" content="42.50">`,
			selector: `[itemprop="price"]`,
			want:     42.50,
		},
		{
			name:     "decimal comma normalized",
			html:     `<span class="price">19,99 €</span>`,
			selector: ".price",
			want:     19.99,
		},
		{
			name:     "integer price",
			html:     `<span class="price">Now only 25 dollars</span>`,
			selector: ".price",
			want:     25,
		},
		{
			name:     "missing element",
			html:     `<div>no price here</div>`,
			selector: ".price",
			wantErr:  true,
		},
		{
			name:     "element without digits",
			html:     `<span class="price">call for price</span>`,
			selector: ".price",
			wantErr:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractPrice(parseDoc(t, tc.html), tc.selector)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractAvailability(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		selector string
		want     bool
	}{
		{"in stock text", `<div class="in-stock">In stock</div>`, ".in-stock", true},
		{"schema in stock", `<link itemprop="availability" href="x" content="https://schema.org/InStock">`, `[itemprop="availability"]`, true},
		{"schema out of stock", `<link itemprop="availability" content="https://schema.org/OutOfStock">`, `[itemprop="availability"]`, false},
		{"out of stock text", `<div class="availability">Out of stock</div>`, ".availability", false},
		{"unavailable text", `<div class="availability">Currently unavailable</div>`, ".availability", false},
		{"missing element means unavailable", `<div>nothing</div>`, ".availability", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractAvailability(parseDoc(t, tc.html), tc.selector); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFetchExtractsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<span class="price">$15.00</span>
			<div class="in-stock">In stock</div>
		</body></html>`))
	}))
	defer srv.Close()

	src := NewHTTPSource(600, nil, nil)
	snap, err := src.Fetch(context.Background(), catalog.Product{URL: srv.URL, Retailer: "walmart"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Price != 15 {
		t.Errorf("price %v, want 15", snap.Price)
	}
	if !snap.Available {
		t.Error("expected available")
	}
	if snap.FetchedAt.IsZero() {
		t.Error("fetched-at not stamped")
	}
}

func TestFetchNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(600, nil, nil)
	if _, err := src.Fetch(context.Background(), catalog.Product{URL: srv.URL}); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestRetailerSelectorsOverrideFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<span class="price">$99.00</span>
			<span class="wm-price">$15.00</span>
		</body></html>`))
	}))
	defer srv.Close()

	src := NewHTTPSource(600, map[string]Selectors{
		"walmart": {Price: ".wm-price"},
	}, nil)
	snap, err := src.Fetch(context.Background(), catalog.Product{URL: srv.URL, Retailer: "Walmart"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Price != 15 {
		t.Errorf("price %v, want 15 from the retailer selector", snap.Price)
	}
}
