package feed

import (
	"context"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/subscriber"
)

// Sink appends delivered events to the subscriber's personal feed. It
// implements alerts.Sink for the rss channel; "delivery" here is making the
// item available at the subscriber's feed URL.
type Sink struct {
	store *Store
}

func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

func (s *Sink) Send(ctx context.Context, sub subscriber.Subscriber, ev alerts.Event) error {
	owner := sub.ID
	return s.store.Append(ctx, &owner, ItemFromEvent(ev))
}
