package subscriber

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory is the Postgres-backed subscriber directory.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// ListActive returns all active subscribers with their channel preferences.
func (d *Directory) ListActive(ctx context.Context) ([]Subscriber, error) {
	rows, err := d.pool.Query(ctx, "active_subscribers")
	if err != nil {
		return nil, fmt.Errorf("query active subscribers: %w", err)
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(
			&s.ID, &s.Email, &s.TelegramChatID, &s.Tier,
			&s.EmailEnabled, &s.TelegramEnabled, &s.RSSEnabled,
		); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Tier returns the tier for a single subscriber. Missing subscribers resolve
// to FREE, the strictest policy.
func (d *Directory) Tier(ctx context.Context, id string) (Tier, error) {
	var t Tier
	err := d.pool.QueryRow(ctx,
		`SELECT tier FROM subscribers WHERE id = $1 AND is_active`, id).Scan(&t)
	if err != nil {
		return TierFree, fmt.Errorf("lookup tier for %s: %w", id, err)
	}
	return t, nil
}
