package alerts

import (
	"context"
	"log/slog"
	"time"
)

// StartWorker runs a background loop that drains due notification tasks.
// Runs independently of the monitoring cycle; claiming keeps it safe against
// concurrent enqueues. Blocks until ctx is cancelled; a drain pass already in
// flight finishes on a detached context so claimed tasks always reach a
// terminal mark. Intended to be called with `go`.
func StartWorker(ctx context.Context, queue *Queue, interval time.Duration, logger *slog.Logger) {
	logger.Info("Notification drain worker started", "interval", interval, "dry_run", queue.dryRun)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := queue.Drain(context.WithoutCancel(ctx))
			if err != nil {
				logger.Error("drain error", "error", err)
			} else if res.Claimed > 0 {
				logger.Info("drain batch", "claimed", res.Claimed, "sent", res.Sent, "failed", res.Failed)
			}
		case <-ctx.Done():
			logger.Info("Notification drain worker stopped")
			return
		}
	}
}
