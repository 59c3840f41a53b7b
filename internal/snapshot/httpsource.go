package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/albapepper/dealwatch/internal/catalog"
)

// Selectors are the CSS selectors used to extract price and availability from
// a product page. Retailer-specific selector sets are configured per retailer
// tag; Default applies when no retailer entry exists.
type Selectors struct {
	Price        string
	Availability string // element present and non-empty text ⇒ in stock
}

// HTTPSource reads product pages over HTTP and extracts snapshots with CSS
// selectors. One shared token-bucket limiter bounds the request rate across
// all scheduler workers.
type HTTPSource struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	selectors  map[string]Selectors
	fallback   Selectors
	logger     *slog.Logger
}

// NewHTTPSource creates an HTTP snapshot source with rate limiting.
func NewHTTPSource(requestsPerMinute int, selectors map[string]Selectors, logger *slog.Logger) *HTTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	rps := float64(requestsPerMinute) / 60.0
	return &HTTPSource{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		selectors:  selectors,
		fallback: Selectors{
			Price:        `[itemprop="price"], .price, .product-price`,
			Availability: `[itemprop="availability"], .in-stock, .availability`,
		},
		logger: logger,
	}
}

// Fetch performs a rate-limited GET of the product page and extracts a
// snapshot. Any HTTP, parse, or extraction failure is terminal for this
// cycle; retries happen only on the next scheduled check.
func (s *HTTPSource) Fetch(ctx context.Context, p catalog.Product) (catalog.Snapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; dealwatch/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("fetch %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return catalog.Snapshot{}, fmt.Errorf("fetch %s returned %d: %s", p.URL, resp.StatusCode, body)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("parse %s: %w", p.URL, err)
	}

	sel, ok := s.selectors[strings.ToLower(p.Retailer)]
	if !ok {
		sel = s.fallback
	}

	price, err := extractPrice(doc, sel.Price)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("extract price from %s: %w", p.URL, err)
	}

	return catalog.Snapshot{
		Price:     price,
		Available: extractAvailability(doc, sel.Availability),
		FetchedAt: time.Now(),
	}, nil
}

var priceRe = regexp.MustCompile(`\d+(?:[.,]\d{1,2})?`)

func extractPrice(doc *goquery.Document, selector string) (float64, error) {
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return 0, fmt.Errorf("no element matches %q", selector)
	}

	text := node.Text()
	if content, ok := node.Attr("content"); ok && content != "" {
		text = content
	}

	match := priceRe.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("no numeric price in %q", strings.TrimSpace(text))
	}
	// Normalize decimal comma
	match = strings.ReplaceAll(match, ",", ".")

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", match, err)
	}
	return price, nil
}

func extractAvailability(doc *goquery.Document, selector string) bool {
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return false
	}
	text := strings.ToLower(node.Text())
	if content, ok := node.Attr("content"); ok {
		text = strings.ToLower(content)
	}
	if strings.Contains(text, "outofstock") || strings.Contains(text, "out of stock") ||
		strings.Contains(text, "unavailable") {
		return false
	}
	return true
}
