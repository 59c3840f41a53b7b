package alerts

import (
	"testing"
	"time"

	"github.com/albapepper/dealwatch/internal/subscriber"
)

func TestVisibleAt(t *testing.T) {
	detected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		tier     subscriber.Tier
		retailer string
		want     time.Time
	}{
		{"paid sees walmart instantly", subscriber.TierPaid, "walmart", detected},
		{"yearly sees walmart instantly", subscriber.TierYearly, "walmart", detected},
		{"free sees amazon instantly", subscriber.TierFree, "amazon", detected},
		{"free amazon match ignores case", subscriber.TierFree, "Amazon", detected},
		{"free amazon match ignores upper case", subscriber.TierFree, "AMAZON", detected},
		{"free waits for walmart", subscriber.TierFree, "walmart", detected.Add(FreeDelay)},
		{"free waits for bestbuy", subscriber.TierFree, "bestbuy", detected.Add(FreeDelay)},
		{"unknown tier gets free policy", subscriber.Tier("TRIAL"), "walmart", detected.Add(FreeDelay)},
		{"unknown tier still instant on amazon", subscriber.Tier("TRIAL"), "amazon", detected},
		{"empty tier gets free policy", subscriber.Tier(""), "walmart", detected.Add(FreeDelay)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VisibleAt(tc.tier, tc.retailer, detected); !got.Equal(tc.want) {
				t.Errorf("VisibleAt(%s, %s) = %v, want %v", tc.tier, tc.retailer, got, tc.want)
			}
		})
	}
}

func TestVisibleAtNeverBeforeDetection(t *testing.T) {
	detected := time.Now()
	for _, tier := range []subscriber.Tier{subscriber.TierFree, subscriber.TierPaid, subscriber.TierYearly, "BOGUS"} {
		for _, retailer := range []string{"amazon", "walmart", ""} {
			if got := VisibleAt(tier, retailer, detected); got.Before(detected) {
				t.Errorf("VisibleAt(%s, %s) = %v is before detection %v", tier, retailer, got, detected)
			}
		}
	}
}

func TestCanSubmitItems(t *testing.T) {
	cases := []struct {
		tier subscriber.Tier
		want bool
	}{
		{subscriber.TierYearly, true},
		{subscriber.TierPaid, false},
		{subscriber.TierFree, false},
		{subscriber.Tier("TRIAL"), false},
	}
	for _, tc := range cases {
		if got := CanSubmitItems(tc.tier); got != tc.want {
			t.Errorf("CanSubmitItems(%s) = %v, want %v", tc.tier, got, tc.want)
		}
	}
}
