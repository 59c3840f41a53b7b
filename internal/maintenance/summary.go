package maintenance

import (
	"context"
	"log/slog"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/monitor"
)

// Reporter emits the daily operational summary.
type Reporter interface {
	DailySummary(ctx context.Context)
}

// LogReporter writes the summary to the structured log. Deployments that want
// the summary somewhere else implement Reporter over their own sink.
type LogReporter struct {
	scheduler *monitor.Scheduler
	queue     *alerts.Queue
	logger    *slog.Logger
}

func NewLogReporter(scheduler *monitor.Scheduler, queue *alerts.Queue, logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{scheduler: scheduler, queue: queue, logger: logger}
}

func (r *LogReporter) DailySummary(ctx context.Context) {
	st := r.scheduler.Status()

	stats, err := r.queue.Stats(ctx)
	if err != nil {
		r.logger.Warn("Daily summary: failed to read queue stats", "error", err)
	}

	r.logger.Info("Daily summary",
		"checks_total", st.TotalChecked,
		"events_total", st.TotalEvents,
		"check_failures_total", st.TotalFailures,
		"tasks_pending", stats.Pending,
		"tasks_sent", stats.Sent,
		"tasks_failed", stats.Failed,
		"tasks_skipped", stats.Skipped,
		"last_cycle_at", st.LastCycleAt)
}
