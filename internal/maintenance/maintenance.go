// Package maintenance runs periodic background tasks as Go tickers.
// Replaces external cron — all scheduled work is driven from Go since the
// service is already a persistent, long-running process.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/dealwatch/internal/alerts"
)

// Deps are the subsystems maintenance operates on.
type Deps struct {
	Queue  *alerts.Queue
	Events EventPurger
	Feed   FeedPruner
}

// EventPurger deletes events older than a cutoff.
type EventPurger interface {
	PurgeEventsOlder(ctx context.Context, cutoff time.Time) (int64, error)
}

// FeedPruner deletes feed items beyond the age bound.
type FeedPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // old tasks, events, feed items
	Retention       time.Duration // age bound applied by cleanup
	SummaryEnabled  bool
	SummaryHour     int // local hour the daily summary fires
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 30 * time.Minute,
		Retention:       7 * 24 * time.Hour,
		SummaryEnabled:  true,
		SummaryHour:     8,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, deps Deps, cfg Config, reporter Reporter, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"retention", cfg.Retention,
		"summary_enabled", cfg.SummaryEnabled)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Cleanup: purge finished notification tasks, old events, and stale
	// feed items past the retention window.
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, deps, cfg.Retention, logger) })
	}

	// Summary: once a day at SummaryHour, report the previous day's totals.
	if cfg.SummaryEnabled && reporter != nil {
		t := time.NewTicker(time.Minute)
		tickers = append(tickers, t)
		fired := -1 // day-of-year of the last fire
		go runLoop(ctx, t.C, func() {
			now := time.Now()
			if now.Hour() == cfg.SummaryHour && now.YearDay() != fired {
				fired = now.YearDay()
				reporter.DailySummary(ctx)
			}
		})
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func cleanup(ctx context.Context, deps Deps, retention time.Duration, logger *slog.Logger) {
	cutoff := time.Now().Add(-retention)

	if deps.Queue != nil {
		n, err := deps.Queue.Cleanup(ctx, retention)
		if err != nil {
			logger.Warn("Cleanup: failed to purge old tasks", "error", err)
		} else if n > 0 {
			logger.Info("Cleanup: purged old tasks", "count", n)
		}
	}

	if deps.Events != nil {
		n, err := deps.Events.PurgeEventsOlder(ctx, cutoff)
		if err != nil {
			logger.Warn("Cleanup: failed to purge old events", "error", err)
		} else if n > 0 {
			logger.Info("Cleanup: purged old events", "count", n)
		}
	}

	if deps.Feed != nil {
		n, err := deps.Feed.Prune(ctx)
		if err != nil {
			logger.Warn("Cleanup: failed to prune feed items", "error", err)
		} else if n > 0 {
			logger.Info("Cleanup: pruned feed items", "count", n)
		}
	}
}
