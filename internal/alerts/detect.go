package alerts

import (
	"time"

	"github.com/albapepper/dealwatch/internal/catalog"
)

// Detect compares a product's stored state against a fresh snapshot and emits
// zero or more events. Pure: no side effects, deterministic given inputs.
//
// Emission order is fixed — restock, price_change, target_price_reached — so
// downstream consumers see a stable ordering when multiple changes land in
// one cycle.
//
// target_price_reached fires once per threshold crossing: the product's
// BelowTargetNotified flag suppresses re-fires while the price stays below
// target, and NextBelowTargetFlag clears it once the price rises back above.
func Detect(p catalog.Product, next catalog.Snapshot) []Event {
	var events []Event

	if !p.Available && next.Available {
		events = append(events, newEvent(p, next, EventRestock))
	}

	if p.CurrentPrice != next.Price {
		events = append(events, newEvent(p, next, EventPriceChange))
	}

	if p.TargetPrice != nil && next.Price <= *p.TargetPrice && !p.BelowTargetNotified {
		events = append(events, newEvent(p, next, EventTargetPriceReached))
	}

	return events
}

// NextBelowTargetFlag computes the threshold-crossing flag to persist after a
// check: set while the price sits at or below target, cleared once it rises
// back above (re-arming the next crossing).
func NextBelowTargetFlag(p catalog.Product, next catalog.Snapshot) bool {
	return p.TargetPrice != nil && next.Price <= *p.TargetPrice
}

func newEvent(p catalog.Product, next catalog.Snapshot, t EventType) Event {
	at := next.FetchedAt
	if at.IsZero() {
		at = time.Now()
	}
	// ID is stamped by the pipeline when the event is persisted, keeping
	// Detect deterministic.
	return Event{
		ProductID:    p.ID,
		ProductName:  p.Name,
		ProductURL:   p.URL,
		Retailer:     p.Retailer,
		Category:     p.Category,
		Type:         t,
		OldPrice:     p.CurrentPrice,
		NewPrice:     next.Price,
		OldAvailable: p.Available,
		NewAvailable: next.Available,
		DetectedAt:   at,
	}
}
