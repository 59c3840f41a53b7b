package alerts

import (
	"strings"
	"time"

	"github.com/albapepper/dealwatch/internal/subscriber"
)

// VisibleAt maps (tier, retailer, detection time) to the moment the event
// becomes visible to that subscriber. Total: every input yields a timestamp.
//
//   - PAID and YEARLY see everything instantly.
//   - FREE sees Amazon deals instantly and everything else after FreeDelay.
//   - Unknown tiers fall back to the FREE policy, the strictest default —
//     visibility delay is a product decision, not a crash condition.
func VisibleAt(tier subscriber.Tier, retailer string, detectedAt time.Time) time.Time {
	switch tier {
	case subscriber.TierPaid, subscriber.TierYearly:
		return detectedAt
	}
	if strings.EqualFold(retailer, instantRetailer) {
		return detectedAt
	}
	return detectedAt.Add(FreeDelay)
}

// CanSubmitItems reports whether a tier may submit manual tracked items.
// Only YEARLY subscribers have this capability.
func CanSubmitItems(tier subscriber.Tier) bool {
	return tier == subscriber.TierYearly
}
