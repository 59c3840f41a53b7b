package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed product store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Due returns active products whose next check time has passed, oldest first.
func (s *Store) Due(ctx context.Context, limit int) ([]Product, error) {
	rows, err := s.pool.Query(ctx, "due_products", limit)
	if err != nil {
		return nil, fmt.Errorf("query due products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ByID returns a single product.
func (s *Store) ByID(ctx context.Context, id int64) (*Product, error) {
	rows, err := s.pool.Query(ctx, "product_by_id", id)
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

// Create inserts a manually submitted product and returns its id.
func (s *Store) Create(ctx context.Context, p Product) (int64, error) {
	interval := int(p.CheckInterval.Seconds())
	if interval <= 0 {
		interval = 300
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (url, retailer, category, name, target_price, check_interval_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.URL, p.Retailer, p.Category, p.Name, p.TargetPrice, interval,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

// UpdateAfterCheck persists the result of a successful check: new snapshot
// state, the target-price crossing flag, and the recomputed next check time.
// Resets the consecutive failure counter.
func (s *Store) UpdateAfterCheck(ctx context.Context, id int64, snap Snapshot, belowTargetNotified bool, nextCheckAt time.Time) error {
	_, err := s.pool.Exec(ctx, "update_after_check",
		id, snap.Price, snap.Available, belowTargetNotified, nextCheckAt)
	if err != nil {
		return fmt.Errorf("update product %d after check: %w", id, err)
	}
	return nil
}

// RecordFailure persists a failed check: the incremented failure counter, the
// (possibly flipped) status, and the backed-off next check time.
func (s *Store) RecordFailure(ctx context.Context, id int64, failureCount int, status ProductStatus, nextCheckAt time.Time) error {
	_, err := s.pool.Exec(ctx, "record_check_failure",
		id, failureCount, string(status), nextCheckAt)
	if err != nil {
		return fmt.Errorf("record failure for product %d: %w", id, err)
	}
	return nil
}

// Reactivate moves a failed product back to active with a cleared failure
// counter. Returns ErrNotFound if the product does not exist or is not failed.
func (s *Store) Reactivate(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "reactivate_product", id)
	if err != nil {
		return fmt.Errorf("reactivate product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a product and, via cascade, its events and tasks.
// Products are only ever destroyed by explicit removal.
func (s *Store) Remove(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		var intervalSeconds int
		if err := rows.Scan(
			&p.ID, &p.URL, &p.Retailer, &p.Category, &p.Name,
			&p.CurrentPrice, &p.Available, &p.TargetPrice, &p.BelowTargetNotified,
			&intervalSeconds, &p.NextCheckAt, &p.FailureCount, &p.LastCheckedAt,
			&p.Status, &p.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.CheckInterval = time.Duration(intervalSeconds) * time.Second
		products = append(products, p)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return products, nil
}
