package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/dealwatch/internal/subscriber"
)

// Sink dispatches one event to one subscriber. Implementations live in
// internal/channel; the queue only sees this contract.
type Sink interface {
	Send(ctx context.Context, sub subscriber.Subscriber, ev Event) error
}

// TaskStore is the durable task buffer the queue drives. *Store implements it
// on Postgres; tests use in-memory fakes.
type TaskStore interface {
	InsertTask(ctx context.Context, t Task) (bool, error)
	ClaimDue(ctx context.Context, limit int) ([]Delivery, error)
	MarkSent(ctx context.Context, t Task) error
	MarkFailed(ctx context.Context, t Task, reason string) error
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
	RedriveFailed(ctx context.Context) (int64, error)
	Counts(ctx context.Context) (Stats, error)
	PurgeTasksOlder(ctx context.Context, cutoff time.Time) (int64, error)
}

// Queue owns the NotificationTask lifecycle: it fans events out to
// per-subscriber tasks with tier-computed visibility, and drains due tasks
// through the dispatch sinks exactly once each.
type Queue struct {
	tasks TaskStore
	sinks map[Channel]Sink
	noop  Sink

	dryRun          bool
	batchSize       int
	dispatchTimeout time.Duration
	staleAfter      time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// QueueOptions configures a Queue.
type QueueOptions struct {
	DryRun          bool
	BatchSize       int
	DispatchTimeout time.Duration

	// StaleAfter is how long a claimed task may sit undelivered before a drain
	// treats its claim as abandoned and returns it to pending.
	StaleAfter time.Duration
}

// NewQueue creates a notification queue over a task store and sink registry.
// In dry-run mode every dispatch goes to a no-op sink; selection, ordering,
// and status transitions are unchanged.
func NewQueue(tasks TaskStore, sinks map[Channel]Sink, opts QueueOptions, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 10 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 5 * time.Minute
	}
	return &Queue{
		tasks:           tasks,
		sinks:           sinks,
		noop:            noopSink{},
		dryRun:          opts.DryRun,
		batchSize:       opts.BatchSize,
		dispatchTimeout: opts.DispatchTimeout,
		staleAfter:      opts.StaleAfter,
		logger:          logger,
		now:             time.Now,
	}
}

// Enqueue creates one task per (subscriber, channel) for the event.
// Subscribers with a channel disabled get a skipped task so the decision is
// auditable. Re-enqueueing the same event is idempotent: the dedup key makes
// duplicate inserts no-ops. A failure for one subscriber never blocks the
// rest.
func (q *Queue) Enqueue(ctx context.Context, ev Event, subs []subscriber.Subscriber) (int, error) {
	created := 0
	var firstErr error

	for _, sub := range subs {
		for _, ch := range Channels {
			task := Task{
				SubscriberID: sub.ID,
				EventID:      ev.ID,
				Channel:      ch,
				VisibleAt:    VisibleAt(sub.Tier, ev.Retailer, ev.DetectedAt),
				Status:       StatusPending,
			}
			if !channelEnabled(sub, ch) {
				task.Status = StatusSkipped
			}

			inserted, err := q.tasks.InsertTask(ctx, task)
			if err != nil {
				q.logger.Error("enqueue failed",
					"subscriber_id", sub.ID, "event_id", ev.ID, "channel", ch, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if inserted && task.Status == StatusPending {
				created++
			}
		}
	}
	return created, firstErr
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Claimed int
	Sent    int
	Failed  int
}

// Drain claims every dispatch-ready task (visible_at has passed) and sends it
// through its channel's sink. Success marks sent, failure marks failed with
// the reason; failed tasks wait for an explicit redrive. Safe to run
// concurrently with Enqueue and with other drains — claiming is atomic, so a
// task is included in exactly one pass. Claims abandoned by a drain that died
// mid-pass are returned to pending once they age past StaleAfter, so an
// interrupted dispatch is retried rather than lost.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	reclaimed, err := q.tasks.ReclaimStale(ctx, q.now().Add(-q.staleAfter))
	if err != nil {
		return res, fmt.Errorf("reclaim stale: %w", err)
	}
	if reclaimed > 0 {
		q.logger.Warn("reclaimed abandoned tasks", "count", reclaimed)
	}

	deliveries, err := q.tasks.ClaimDue(ctx, q.batchSize)
	if err != nil {
		return res, fmt.Errorf("claim due: %w", err)
	}
	res.Claimed = len(deliveries)

	for _, d := range deliveries {
		if err := q.dispatch(ctx, d); err != nil {
			q.logger.Warn("dispatch failed",
				"subscriber_id", d.Task.SubscriberID,
				"event_id", d.Task.EventID,
				"channel", d.Task.Channel,
				"error", err)
			if markErr := q.tasks.MarkFailed(ctx, d.Task, err.Error()); markErr != nil {
				q.logger.Error("mark failed", "event_id", d.Task.EventID, "error", markErr)
			}
			res.Failed++
			continue
		}
		if markErr := q.tasks.MarkSent(ctx, d.Task); markErr != nil {
			q.logger.Error("mark sent", "event_id", d.Task.EventID, "error", markErr)
		}
		res.Sent++
	}
	return res, nil
}

// Redrive resets failed tasks to pending so the next drain retries them.
// This is the only retry path for dispatch failures.
func (q *Queue) Redrive(ctx context.Context) (int64, error) {
	return q.tasks.RedriveFailed(ctx)
}

// Stats returns current per-status task counters.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	return q.tasks.Counts(ctx)
}

// Cleanup purges tasks older than the retention window regardless of status.
func (q *Queue) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return q.tasks.PurgeTasksOlder(ctx, q.now().Add(-retention))
}

func (q *Queue) dispatch(ctx context.Context, d Delivery) error {
	sink := q.sinkFor(d.Task.Channel)
	if sink == nil {
		return fmt.Errorf("no sink configured for channel %q", d.Task.Channel)
	}

	sendCtx, cancel := context.WithTimeout(ctx, q.dispatchTimeout)
	defer cancel()
	return sink.Send(sendCtx, d.Subscriber, d.Event)
}

func (q *Queue) sinkFor(ch Channel) Sink {
	if q.dryRun {
		return q.noop
	}
	return q.sinks[ch]
}

func channelEnabled(sub subscriber.Subscriber, ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return sub.EmailEnabled
	case ChannelTelegram:
		return sub.TelegramEnabled
	case ChannelRSS:
		return sub.RSSEnabled
	default:
		return false
	}
}

// noopSink is the dry-run sink: it accepts everything and touches nothing.
type noopSink struct{}

func (noopSink) Send(context.Context, subscriber.Subscriber, Event) error { return nil }
