package alerts

import (
	"context"
	"testing"

	"github.com/albapepper/dealwatch/internal/subscriber"
)

type fakeEventStore struct {
	inserted []Event
}

func (f *fakeEventStore) InsertEvents(_ context.Context, events []Event) error {
	f.inserted = append(f.inserted, events...)
	return nil
}

type fakeDirectory struct {
	subs []subscriber.Subscriber
}

func (f *fakeDirectory) ListActive(context.Context) ([]subscriber.Subscriber, error) {
	return f.subs, nil
}

type fakeFeed struct {
	published []Event
}

func (f *fakeFeed) PublishEvent(_ context.Context, ev Event) error {
	f.published = append(f.published, ev)
	return nil
}

func TestPublishStampsIDsAndFansOut(t *testing.T) {
	store := newFakeTaskStore()
	events := &fakeEventStore{}
	feed := &fakeFeed{}
	subs := &fakeDirectory{subs: []subscriber.Subscriber{
		testSubscriber("s1", subscriber.TierPaid),
		testSubscriber("s2", subscriber.TierFree),
	}}
	for _, s := range subs.subs {
		store.subs[s.ID] = s
	}
	q := NewQueue(store, allSinks(&recordingSink{}), QueueOptions{}, nil)
	p := NewPipeline(events, q, subs, feed, nil)

	ev := testEvent("amazon")
	ev.ID = ""
	if err := p.Publish(context.Background(), []Event{ev}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(events.inserted) != 1 {
		t.Fatalf("persisted %d events, want 1", len(events.inserted))
	}
	if events.inserted[0].ID == "" {
		t.Fatal("persisted event has no id")
	}
	if len(feed.published) != 1 {
		t.Fatalf("aggregate feed received %d events, want 1", len(feed.published))
	}

	// One task per subscriber per channel.
	store.mu.Lock()
	total := len(store.tasks)
	store.mu.Unlock()
	if want := len(subs.subs) * len(Channels); total != want {
		t.Fatalf("created %d tasks, want %d", total, want)
	}
}

func TestPublishNothingOnEmptyBatch(t *testing.T) {
	events := &fakeEventStore{}
	feed := &fakeFeed{}
	q := NewQueue(newFakeTaskStore(), allSinks(&recordingSink{}), QueueOptions{}, nil)
	p := NewPipeline(events, q, &fakeDirectory{}, feed, nil)

	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(events.inserted) != 0 || len(feed.published) != 0 {
		t.Fatal("empty batch must not touch stores")
	}
}
