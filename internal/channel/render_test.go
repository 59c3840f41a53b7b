package channel

import (
	"strings"
	"testing"
	"time"

	"github.com/albapepper/dealwatch/internal/alerts"
)

func sampleEvent(t alerts.EventType) alerts.Event {
	return alerts.Event{
		ID:          "ev-1",
		ProductID:   7,
		ProductName: "Widget",
		ProductURL:  "https://example.com/widget",
		Retailer:    "walmart",
		Category:    "tools",
		Type:        t,
		OldPrice:    20,
		NewPrice:    15,
		DetectedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSubject(t *testing.T) {
	cases := []struct {
		typ  alerts.EventType
		want string
	}{
		{alerts.EventRestock, "Back in stock: Widget"},
		{alerts.EventPriceChange, "Price drop: Widget now $15.00"},
		{alerts.EventTargetPriceReached, "Target price reached: Widget at $15.00"},
	}
	for _, tc := range cases {
		if got := Subject(sampleEvent(tc.typ)); got != tc.want {
			t.Errorf("Subject(%s) = %q, want %q", tc.typ, got, tc.want)
		}
	}
}

func TestSubjectPriceRise(t *testing.T) {
	ev := sampleEvent(alerts.EventPriceChange)
	ev.OldPrice = 10
	ev.NewPrice = 15
	if got := Subject(ev); !strings.HasPrefix(got, "Price change:") {
		t.Errorf("rising price subject = %q, want a neutral price change", got)
	}
}

func TestPlainBodyCarriesLinkAndPrices(t *testing.T) {
	body := PlainBody(sampleEvent(alerts.EventPriceChange))
	for _, want := range []string{"Widget", "walmart", "$15.00", "$20.00", "https://example.com/widget"} {
		if !strings.Contains(body, want) {
			t.Errorf("plain body missing %q:\n%s", want, body)
		}
	}
}

func TestHTMLBodyLinksProduct(t *testing.T) {
	html := HTMLBody(sampleEvent(alerts.EventRestock))
	if !strings.Contains(html, `href="https://example.com/widget"`) {
		t.Errorf("html body missing product link:\n%s", html)
	}
	if !strings.Contains(html, "$15.00") {
		t.Errorf("html body missing price:\n%s", html)
	}
}
