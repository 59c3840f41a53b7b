package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/albapepper/dealwatch/internal/subscriber"
)

// EventStore persists detected events. *Store implements it on Postgres.
type EventStore interface {
	InsertEvents(ctx context.Context, events []Event) error
}

// SubscriberDirectory is the read-only view of active subscribers.
type SubscriberDirectory interface {
	ListActive(ctx context.Context) ([]subscriber.Subscriber, error)
}

// AggregateFeed receives every event once for the public feed, independent of
// any subscriber.
type AggregateFeed interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// Pipeline fans detected events out to the notification queue: persist the
// events, append them to the public aggregate feed, and enqueue one task per
// subscriber and channel.
type Pipeline struct {
	events EventStore
	queue  *Queue
	subs   SubscriberDirectory
	feed   AggregateFeed
	logger *slog.Logger
}

func NewPipeline(events EventStore, queue *Queue, subs SubscriberDirectory, feed AggregateFeed, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{events: events, queue: queue, subs: subs, feed: feed, logger: logger}
}

// Publish stamps ids on the events, persists them, and enqueues notification
// tasks for every active subscriber. The subscriber list is read once per
// batch so all events in a cycle see the same membership.
func (p *Pipeline) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.New().String()
		}
	}

	if err := p.events.InsertEvents(ctx, events); err != nil {
		return fmt.Errorf("persist events: %w", err)
	}

	subs, err := p.subs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	for _, ev := range events {
		if p.feed != nil {
			if err := p.feed.PublishEvent(ctx, ev); err != nil {
				p.logger.Warn("aggregate feed append failed",
					"event_id", ev.ID, "product_id", ev.ProductID, "error", err)
			}
		}

		created, err := p.queue.Enqueue(ctx, ev, subs)
		if err != nil {
			p.logger.Warn("enqueue incomplete",
				"event_id", ev.ID, "product_id", ev.ProductID, "error", err)
		}
		p.logger.Info("event published",
			"event_id", ev.ID, "product_id", ev.ProductID,
			"type", ev.Type, "tasks", created)
	}
	return nil
}
