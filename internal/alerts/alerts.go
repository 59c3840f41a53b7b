// Package alerts turns detected product changes into per-subscriber
// notification tasks and drives their dispatch.
//
// Pipeline: detect changes → apply tier visibility policy per subscriber →
// persist deduplicated tasks → drain due tasks through dispatch channels.
// A background drain worker sends due notifications on its own ticker.
package alerts

import (
	"errors"
	"time"

	"github.com/albapepper/dealwatch/internal/subscriber"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// FreeDelay is how long non-Amazon deals stay hidden from FREE-tier
	// subscribers after detection.
	FreeDelay = 10 * time.Minute

	instantRetailer = "amazon"
)

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// EventType classifies a detected product change.
type EventType string

const (
	EventRestock            EventType = "restock"
	EventPriceChange        EventType = "price_change"
	EventTargetPriceReached EventType = "target_price_reached"
)

// Event is an immutable record of a detected change. Created only by Detect;
// removed only by retention cleanup.
type Event struct {
	ID        string `json:"id"`
	ProductID int64  `json:"product_id"`

	// Denormalized product fields carried for message rendering.
	ProductName string `json:"product_name"`
	ProductURL  string `json:"product_url"`
	Retailer    string `json:"retailer"`
	Category    string `json:"category,omitempty"`

	Type         EventType `json:"type"`
	OldPrice     float64   `json:"old_price"`
	NewPrice     float64   `json:"new_price"`
	OldAvailable bool      `json:"old_available"`
	NewAvailable bool      `json:"new_available"`
	DetectedAt   time.Time `json:"detected_at"`
}

// --------------------------------------------------------------------------
// Notification tasks
// --------------------------------------------------------------------------

// Channel identifies a dispatch channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelRSS      Channel = "rss"
)

// Channels lists every dispatch channel in a stable order.
var Channels = []Channel{ChannelEmail, ChannelTelegram, ChannelRSS}

// TaskStatus is the delivery state of a notification task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusSent    TaskStatus = "sent"
	StatusFailed  TaskStatus = "failed"
	StatusSkipped TaskStatus = "skipped"

	// statusSending is a transient claim marker while a drain pass holds the
	// task; it always resolves to sent or failed within the same pass.
	statusSending TaskStatus = "sending"
)

// Task is one pending notification for one subscriber on one channel.
// The (subscriber, event, channel) triple is the deduplication key.
type Task struct {
	SubscriberID string
	EventID      string
	Channel      Channel
	VisibleAt    time.Time
	Status       TaskStatus
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SentAt       *time.Time
}

// Delivery is a claimed task joined with everything a sink needs to send it.
type Delivery struct {
	Task       Task
	Event      Event
	Subscriber subscriber.Subscriber
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
}

// ErrCycleRunning is returned when a drain or cycle trigger overlaps an
// in-flight one.
var ErrCycleRunning = errors.New("already running")
