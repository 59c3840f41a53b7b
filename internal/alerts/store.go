package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed event and task store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// InsertEvents persists a batch of detected events.
func (s *Store) InsertEvents(ctx context.Context, events []Event) error {
	for _, e := range events {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO product_events (
				id, product_id, event_type, old_price, new_price,
				old_available, new_available, detected_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.ProductID, e.Type, e.OldPrice, e.NewPrice,
			e.OldAvailable, e.NewAvailable, e.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}
	return nil
}

// RecentEvents returns the newest events joined with their product fields.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.product_id, e.event_type, e.old_price, e.new_price,
			e.old_available, e.new_available, e.detected_at,
			p.name, p.url, p.retailer, p.category
		FROM product_events e
		JOIN products p ON p.id = e.product_id
		ORDER BY e.detected_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.ProductID, &e.Type, &e.OldPrice, &e.NewPrice,
			&e.OldAvailable, &e.NewAvailable, &e.DetectedAt,
			&e.ProductName, &e.ProductURL, &e.Retailer, &e.Category,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PurgeEventsOlder removes events past the retention window. Tasks referencing
// them cascade.
func (s *Store) PurgeEventsOlder(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM product_events WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --------------------------------------------------------------------------
// Tasks
// --------------------------------------------------------------------------

// InsertTask inserts a notification task. The (subscriber, event, channel)
// primary key makes a second insert of the same triple a no-op; returns
// whether a row was actually created.
func (s *Store) InsertTask(ctx context.Context, t Task) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO notification_tasks (subscriber_id, event_id, channel, visible_at, status)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (subscriber_id, event_id, channel) DO NOTHING`,
		t.SubscriberID, t.EventID, t.Channel, t.VisibleAt, t.Status,
	)
	if err != nil {
		return false, fmt.Errorf("insert task (%s,%s,%s): %w", t.SubscriberID, t.EventID, t.Channel, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimDue atomically claims a batch of due pending tasks for dispatch,
// joined with the event, product, and subscriber fields sinks need.
// Uses FOR UPDATE SKIP LOCKED so concurrent drains never double-send.
func (s *Store) ClaimDue(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		WITH claimed AS (
			UPDATE notification_tasks t
			SET status = 'sending', updated_at = NOW()
			WHERE (t.subscriber_id, t.event_id, t.channel) IN (
				SELECT subscriber_id, event_id, channel
				FROM notification_tasks
				WHERE status = 'pending' AND visible_at <= NOW()
				ORDER BY visible_at
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING t.subscriber_id, t.event_id, t.channel, t.visible_at
		)
		SELECT c.subscriber_id, c.event_id, c.channel, c.visible_at,
			e.product_id, e.event_type, e.old_price, e.new_price,
			e.old_available, e.new_available, e.detected_at,
			p.name, p.url, p.retailer, p.category,
			s.email, s.telegram_chat_id, s.tier
		FROM claimed c
		JOIN product_events e ON e.id = c.event_id
		JOIN products p ON p.id = e.product_id
		JOIN subscribers s ON s.id = c.subscriber_id
		ORDER BY c.visible_at`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due tasks: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(
			&d.Task.SubscriberID, &d.Task.EventID, &d.Task.Channel, &d.Task.VisibleAt,
			&d.Event.ProductID, &d.Event.Type, &d.Event.OldPrice, &d.Event.NewPrice,
			&d.Event.OldAvailable, &d.Event.NewAvailable, &d.Event.DetectedAt,
			&d.Event.ProductName, &d.Event.ProductURL, &d.Event.Retailer, &d.Event.Category,
			&d.Subscriber.Email, &d.Subscriber.TelegramChatID, &d.Subscriber.Tier,
		); err != nil {
			return nil, fmt.Errorf("scan claimed task: %w", err)
		}
		d.Event.ID = d.Task.EventID
		d.Subscriber.ID = d.Task.SubscriberID
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// ReclaimStale resets tasks stuck in the claim marker back to pending. A task
// stays claimed only for the duration of one dispatch; anything older than the
// cutoff was claimed by a drain that died before marking it.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_tasks
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'sending' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkSent marks a claimed task as successfully dispatched.
func (s *Store) MarkSent(ctx context.Context, t Task) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_tasks
		SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE subscriber_id = $1 AND event_id = $2 AND channel = $3`,
		t.SubscriberID, t.EventID, t.Channel)
	return err
}

// MarkFailed records a dispatch failure. Failed tasks are never auto-retried;
// RedriveFailed re-drives them explicitly.
func (s *Store) MarkFailed(ctx context.Context, t Task, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_tasks
		SET status = 'failed', last_error = $4, updated_at = NOW()
		WHERE subscriber_id = $1 AND event_id = $2 AND channel = $3`,
		t.SubscriberID, t.EventID, t.Channel, reason)
	return err
}

// RedriveFailed resets failed tasks to pending for another drain pass.
func (s *Store) RedriveFailed(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_tasks
		SET status = 'pending', last_error = '', updated_at = NOW()
		WHERE status = 'failed'`)
	if err != nil {
		return 0, fmt.Errorf("redrive failed tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Counts returns per-status task counters.
func (s *Store) Counts(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM notification_tasks GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status TaskStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan task count: %w", err)
		}
		switch status {
		case StatusPending, statusSending:
			stats.Pending += n
		case StatusSent:
			stats.Sent += n
		case StatusFailed:
			stats.Failed += n
		case StatusSkipped:
			stats.Skipped += n
		}
	}
	return stats, rows.Err()
}

// PurgeTasksOlder removes tasks past the retention window regardless of
// status.
func (s *Store) PurgeTasksOlder(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notification_tasks WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
