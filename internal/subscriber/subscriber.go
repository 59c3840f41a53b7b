// Package subscriber provides read-only access to the subscriber directory.
// Subscribers are owned by account management; this core only reads them to
// decide notification timing and channels.
package subscriber

// Tier is a subscription level.
type Tier string

const (
	TierFree   Tier = "FREE"
	TierPaid   Tier = "PAID"
	TierYearly Tier = "YEARLY"
)

// Subscriber is an account receiving deal alerts.
type Subscriber struct {
	ID             string
	Email          string
	TelegramChatID int64
	Tier           Tier

	EmailEnabled    bool
	TelegramEnabled bool
	RSSEnabled      bool
}
