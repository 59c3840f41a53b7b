// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap, and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/dealwatch/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Migrate creates the Dealwatch tables if they do not exist. Safe to run on
// every startup. The prepared statements below assume this schema.
//
// Uses a plain (non-prepared) connection path so it can run before any
// AfterConnect statement references the tables.
func Migrate(ctx context.Context, dbURL string) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect for migrate: %w", err)
	}
	defer conn.Close(context.Background())

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			url TEXT NOT NULL,
			retailer TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			current_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			available BOOLEAN NOT NULL DEFAULT false,
			target_price DOUBLE PRECISION,
			below_target_notified BOOLEAN NOT NULL DEFAULT false,
			check_interval_seconds INTEGER NOT NULL DEFAULT 300,
			next_check_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			failure_count INTEGER NOT NULL DEFAULT 0,
			last_checked_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'active',
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_due
			ON products (next_check_at) WHERE is_active AND status = 'active'`,

		`CREATE TABLE IF NOT EXISTS product_events (
			id UUID PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			event_type TEXT NOT NULL,
			old_price DOUBLE PRECISION NOT NULL,
			new_price DOUBLE PRECISION NOT NULL,
			old_available BOOLEAN NOT NULL,
			new_available BOOLEAN NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_detected
			ON product_events (detected_at)`,

		`CREATE TABLE IF NOT EXISTS subscribers (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			telegram_chat_id BIGINT NOT NULL DEFAULT 0,
			tier TEXT NOT NULL DEFAULT 'FREE',
			email_enabled BOOLEAN NOT NULL DEFAULT true,
			telegram_enabled BOOLEAN NOT NULL DEFAULT false,
			rss_enabled BOOLEAN NOT NULL DEFAULT true,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS notification_tasks (
			subscriber_id TEXT NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
			event_id UUID NOT NULL REFERENCES product_events(id) ON DELETE CASCADE,
			channel TEXT NOT NULL,
			visible_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			sent_at TIMESTAMPTZ,
			PRIMARY KEY (subscriber_id, event_id, channel)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due
			ON notification_tasks (visible_at) WHERE status = 'pending'`,

		`CREATE TABLE IF NOT EXISTS feed_items (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			subscriber_id TEXT,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_items_sub
			ON feed_items (subscriber_id, published_at DESC)`,

		// Wake the drain listener on every pending task insert.
		`CREATE OR REPLACE FUNCTION notify_task_ready() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('task_ready', NEW.event_id::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS trg_task_ready ON notification_tasks`,
		`CREATE TRIGGER trg_task_ready
			AFTER INSERT ON notification_tasks
			FOR EACH ROW WHEN (NEW.status = 'pending')
			EXECUTE FUNCTION notify_task_ready()`,
	}

	for _, sql := range stmts {
		if _, err := conn.Exec(ctx, sql); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// registerPreparedStatements registers all statements the scheduler, queue,
// and API layers use. Prepared statements eliminate parse overhead on every
// cycle.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Products: scheduler selection and state updates
		"due_products": `SELECT id, url, retailer, category, name, current_price, available,
				target_price, below_target_notified, check_interval_seconds,
				next_check_at, failure_count, last_checked_at, status, is_active
			FROM products
			WHERE is_active AND status = 'active' AND next_check_at <= NOW()
			ORDER BY next_check_at
			LIMIT $1`,
		"product_by_id": `SELECT id, url, retailer, category, name, current_price, available,
				target_price, below_target_notified, check_interval_seconds,
				next_check_at, failure_count, last_checked_at, status, is_active
			FROM products WHERE id = $1`,
		"update_after_check": `UPDATE products
			SET current_price = $2, available = $3, below_target_notified = $4,
				next_check_at = $5, failure_count = 0, last_checked_at = NOW(),
				updated_at = NOW()
			WHERE id = $1`,
		"record_check_failure": `UPDATE products
			SET failure_count = $2, status = $3, next_check_at = $4, updated_at = NOW()
			WHERE id = $1`,
		"reactivate_product": `UPDATE products
			SET status = 'active', failure_count = 0, next_check_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'failed'`,

		// Subscribers: read-only directory
		"active_subscribers": `SELECT id, email, telegram_chat_id, tier,
				email_enabled, telegram_enabled, rss_enabled
			FROM subscribers WHERE is_active`,

		// Feed items
		"feed_items_for": `SELECT title, link, description, category, published_at
			FROM feed_items
			WHERE subscriber_id IS NOT DISTINCT FROM $1 AND published_at > $2
			ORDER BY published_at DESC
			LIMIT $3`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
