// Package catalog owns tracked product state. Products are mutated only by
// the monitoring scheduler after a completed check cycle; everything else
// reads snapshots.
package catalog

import (
	"errors"
	"time"
)

// ProductStatus is the lifecycle state of a tracked product.
type ProductStatus string

const (
	StatusActive ProductStatus = "active"
	StatusFailed ProductStatus = "failed"
	StatusPaused ProductStatus = "paused"
)

var ErrNotFound = errors.New("product not found")

// Product is a retailer product under monitoring.
type Product struct {
	ID       int64
	URL      string
	Retailer string
	Category string
	Name     string

	CurrentPrice float64
	Available    bool

	// TargetPrice, when set, arms target_price_reached events.
	// BelowTargetNotified tracks the current threshold crossing so the event
	// fires once per crossing, not once per cycle.
	TargetPrice         *float64
	BelowTargetNotified bool

	CheckInterval time.Duration
	NextCheckAt   time.Time
	FailureCount  int

	// LastCheckedAt is nil until the first successful check; the detector is
	// only consulted once a prior snapshot exists.
	LastCheckedAt *time.Time
	Status        ProductStatus
	IsActive      bool
}

// Snapshot is a point-in-time read of a product's price and availability,
// as returned by a snapshot source.
type Snapshot struct {
	Price     float64
	Available bool
	FetchedAt time.Time
}
