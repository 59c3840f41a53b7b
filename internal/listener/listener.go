// Package listener provides a Postgres LISTEN/NOTIFY consumer that reacts to
// freshly enqueued notification tasks. It holds a dedicated pgx connection
// (not from the pool) listening on the `task_ready` channel.
//
// A trigger on notification_tasks fires pg_notify for every pending insert;
// the consumer responds by draining the queue immediately instead of waiting
// for the next ticker pass. Tasks with a future visible_at are claimed by a
// later drain once their delay elapses, so an early wake-up is harmless.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/dealwatch/internal/alerts"
)

const (
	channel          = "task_ready"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Start opens a dedicated connection and listens on the task_ready channel.
// It reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, queue *alerts.Queue, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, queue, logger)
		if ctx.Err() != nil {
			logger.Info("Task listener stopped (context cancelled)")
			return
		}

		logger.Error("Task listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, queue *alerts.Queue, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Task listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		// One drain pass claims the whole due batch, so a burst of notifies
		// coalesces into few passes. The pass runs detached from ctx so a
		// shutdown mid-dispatch still lets claimed tasks reach a terminal mark.
		res, err := queue.Drain(context.WithoutCancel(ctx))
		if err != nil {
			logger.Warn("Drain after notify failed",
				"event_id", notification.Payload, "error", err)
			continue
		}
		if res.Claimed > 0 {
			logger.Info("Drained after notify",
				"claimed", res.Claimed, "sent", res.Sent, "failed", res.Failed)
		}
	}
}
