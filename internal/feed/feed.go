// Package feed maintains the RSS feed stores: one public aggregate feed of
// every event, and one per-subscriber feed of the events delivered to that
// subscriber. Items are bounded by count and age per feed.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/channel"
)

// Item is one entry in a feed.
type Item struct {
	Title       string
	Link        string
	Description string
	Category    string
	PublishedAt time.Time
}

// ItemFromEvent renders an event into a feed item.
func ItemFromEvent(ev alerts.Event) Item {
	return Item{
		Title:       channel.Subject(ev),
		Link:        ev.ProductURL,
		Description: channel.PlainBody(ev),
		Category:    ev.Category,
		PublishedAt: ev.DetectedAt,
	}
}

// Store is the Postgres-backed feed item store. A nil owner is the public
// aggregate feed; a subscriber id scopes a per-subscriber feed.
type Store struct {
	pool     *pgxpool.Pool
	maxItems int
	maxAge   time.Duration
}

func NewStore(pool *pgxpool.Pool, maxItems int, maxAge time.Duration) *Store {
	return &Store{pool: pool, maxItems: maxItems, maxAge: maxAge}
}

// Append inserts an item into the feed owned by owner and evicts the oldest
// entries beyond the configured count bound.
func (s *Store) Append(ctx context.Context, owner *string, item Item) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feed_items (subscriber_id, title, link, description, category, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		owner, item.Title, item.Link, item.Description, item.Category, item.PublishedAt)
	if err != nil {
		return fmt.Errorf("insert feed item: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM feed_items
		 WHERE subscriber_id IS NOT DISTINCT FROM $1
		   AND id NOT IN (
			SELECT id FROM feed_items
			WHERE subscriber_id IS NOT DISTINCT FROM $1
			ORDER BY published_at DESC
			LIMIT $2
		 )`,
		owner, s.maxItems)
	if err != nil {
		return fmt.Errorf("evict feed items: %w", err)
	}
	return nil
}

// ItemsFor returns the newest items in a feed, freshest first, bounded by the
// configured count and age.
func (s *Store) ItemsFor(ctx context.Context, owner *string) ([]Item, error) {
	cutoff := time.Now().Add(-s.maxAge)
	rows, err := s.pool.Query(ctx, "feed_items_for", owner, cutoff, s.maxItems)
	if err != nil {
		return nil, fmt.Errorf("query feed items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Title, &it.Link, &it.Description, &it.Category, &it.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Prune deletes items older than the configured age bound across all feeds.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM feed_items WHERE published_at < $1`, time.Now().Add(-s.maxAge))
	if err != nil {
		return 0, fmt.Errorf("prune feed items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PublishEvent appends an event to the public aggregate feed. It implements
// alerts.AggregateFeed.
func (s *Store) PublishEvent(ctx context.Context, ev alerts.Event) error {
	return s.Append(ctx, nil, ItemFromEvent(ev))
}
