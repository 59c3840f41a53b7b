package alerts

import (
	"testing"
	"time"

	"github.com/albapepper/dealwatch/internal/catalog"
)

func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func watchedProduct(price float64, available bool) catalog.Product {
	return catalog.Product{
		ID:           1,
		URL:          "https://example.com/widget",
		Retailer:     "walmart",
		Name:         "Widget",
		CurrentPrice: price,
		Available:    available,
	}
}

func snap(price float64, available bool) catalog.Snapshot {
	return catalog.Snapshot{Price: price, Available: available, FetchedAt: fixedTime()}
}

func TestDetectNoChange(t *testing.T) {
	p := watchedProduct(20, true)
	if events := Detect(p, snap(20, true)); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestDetectRestock(t *testing.T) {
	p := watchedProduct(20, false)
	events := Detect(p, snap(20, true))
	if len(events) != 1 || events[0].Type != EventRestock {
		t.Fatalf("expected one restock event, got %+v", events)
	}
	// Out of stock is not an event.
	p = watchedProduct(20, true)
	if events := Detect(p, snap(20, false)); len(events) != 0 {
		t.Fatalf("going out of stock should not emit events, got %+v", events)
	}
}

func TestDetectPriceChangeBothDirections(t *testing.T) {
	p := watchedProduct(20, true)

	events := Detect(p, snap(15, true))
	if len(events) != 1 || events[0].Type != EventPriceChange {
		t.Fatalf("expected price_change on drop, got %+v", events)
	}
	if events[0].OldPrice != 20 || events[0].NewPrice != 15 {
		t.Fatalf("wrong prices: old=%v new=%v", events[0].OldPrice, events[0].NewPrice)
	}

	events = Detect(p, snap(25, true))
	if len(events) != 1 || events[0].Type != EventPriceChange {
		t.Fatalf("expected price_change on rise, got %+v", events)
	}
}

func TestDetectEmissionOrder(t *testing.T) {
	target := 10.0
	p := watchedProduct(20, false)
	p.TargetPrice = &target

	events := Detect(p, snap(9, true))
	want := []EventType{EventRestock, EventPriceChange, EventTargetPriceReached}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("event %d: got %s, want %s", i, e.Type, want[i])
		}
	}
}

func TestDetectDeterministic(t *testing.T) {
	target := 10.0
	p := watchedProduct(20, false)
	p.TargetPrice = &target
	s := snap(9, true)

	first := Detect(p, s)
	second := Detect(p, s)
	if len(first) != len(second) {
		t.Fatalf("detect is not deterministic: %d vs %d events", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("event %d differs between identical calls:\n%+v\n%+v", i, first[i], second[i])
		}
	}
}

// Prices 20 → 9 → 8 → 12 → 7 against a target of 10 must fire the target
// event exactly twice: on the 9 (first crossing) and on the 7 (re-crossing
// after the price rose back above target).
func TestTargetPriceFiresOncePerCrossing(t *testing.T) {
	target := 10.0
	p := watchedProduct(20, true)
	p.TargetPrice = &target

	var fired []float64
	for _, price := range []float64{9, 8, 12, 7} {
		s := snap(price, true)
		for _, e := range Detect(p, s) {
			if e.Type == EventTargetPriceReached {
				fired = append(fired, price)
			}
		}
		// Apply the same state transition the scheduler persists.
		p.BelowTargetNotified = NextBelowTargetFlag(p, s)
		p.CurrentPrice = s.Price
		p.Available = s.Available
	}

	if len(fired) != 2 || fired[0] != 9 || fired[1] != 7 {
		t.Fatalf("target event fired at %v, want [9 7]", fired)
	}
}

func TestNextBelowTargetFlag(t *testing.T) {
	target := 10.0
	cases := []struct {
		name   string
		target *float64
		price  float64
		want   bool
	}{
		{"below target", &target, 9, true},
		{"at target", &target, 10, true},
		{"above target", &target, 11, false},
		{"no target set", nil, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := watchedProduct(20, true)
			p.TargetPrice = tc.target
			if got := NextBelowTargetFlag(p, snap(tc.price, true)); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
