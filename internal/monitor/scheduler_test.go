package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/catalog"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type updateCall struct {
	id          int64
	snap        catalog.Snapshot
	belowTarget bool
	nextCheckAt time.Time
}

type failureCall struct {
	id          int64
	count       int
	status      catalog.ProductStatus
	nextCheckAt time.Time
}

type fakeProducts struct {
	mu       sync.Mutex
	due      []catalog.Product
	updates  []updateCall
	failures []failureCall
}

func (f *fakeProducts) Due(context.Context, int) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due, nil
}

func (f *fakeProducts) UpdateAfterCheck(_ context.Context, id int64, snap catalog.Snapshot, belowTarget bool, nextCheckAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{id, snap, belowTarget, nextCheckAt})
	return nil
}

func (f *fakeProducts) RecordFailure(_ context.Context, id int64, count int, status catalog.ProductStatus, nextCheckAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, failureCall{id, count, status, nextCheckAt})
	return nil
}

func (f *fakeProducts) Reactivate(context.Context, int64) error { return nil }

type fakeSource struct {
	fetch func(ctx context.Context, p catalog.Product) (catalog.Snapshot, error)
}

func (f *fakeSource) Fetch(ctx context.Context, p catalog.Product) (catalog.Snapshot, error) {
	return f.fetch(ctx, p)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []alerts.Event
}

func (f *fakePublisher) Publish(_ context.Context, events []alerts.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

var cycleStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func checkedProduct(id int64) catalog.Product {
	checked := cycleStart.Add(-5 * time.Minute)
	return catalog.Product{
		ID:            id,
		URL:           "https://example.com/widget",
		Retailer:      "walmart",
		Name:          "Widget",
		CurrentPrice:  20,
		Available:     true,
		CheckInterval: 5 * time.Minute,
		LastCheckedAt: &checked,
		Status:        catalog.StatusActive,
		IsActive:      true,
	}
}

func testOptions() Options {
	return Options{
		Workers:      2,
		FetchTimeout: time.Second,
		MaxFailures:  3,
		BackoffBase:  2 * time.Minute,
		BackoffMax:   2 * time.Hour,
	}
}

func fixedSnapshot(price float64) *fakeSource {
	return &fakeSource{fetch: func(_ context.Context, _ catalog.Product) (catalog.Snapshot, error) {
		return catalog.Snapshot{Price: price, Available: true, FetchedAt: cycleStart}, nil
	}}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRunCycleRejectsOverlap(t *testing.T) {
	products := &fakeProducts{due: []catalog.Product{checkedProduct(1)}}
	release := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once
	source := &fakeSource{fetch: func(ctx context.Context, _ catalog.Product) (catalog.Snapshot, error) {
		startOnce.Do(func() { close(started) })
		<-release
		return catalog.Snapshot{Price: 20, Available: true}, nil
	}}
	s := NewScheduler(products, source, &fakePublisher{}, testOptions(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunCycle(context.Background())
	}()

	<-started
	if _, err := s.ForceRun(context.Background()); !errors.Is(err, alerts.ErrCycleRunning) {
		t.Fatalf("overlapping run returned %v, want ErrCycleRunning", err)
	}
	if !s.Status().Running {
		t.Error("status should report a running cycle")
	}

	close(release)
	<-done

	if s.Status().Running {
		t.Error("status still reports running after the cycle finished")
	}
	if _, err := s.ForceRun(context.Background()); err != nil {
		t.Fatalf("run after completion: %v", err)
	}
}

func TestShutdownLetsInFlightChecksFinish(t *testing.T) {
	products := &fakeProducts{due: []catalog.Product{checkedProduct(1)}}
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once

	var mu sync.Mutex
	var fetchErrs []error
	source := &fakeSource{fetch: func(ctx context.Context, _ catalog.Product) (catalog.Snapshot, error) {
		startOnce.Do(func() { close(started) })
		<-release
		mu.Lock()
		fetchErrs = append(fetchErrs, ctx.Err())
		mu.Unlock()
		return catalog.Snapshot{Price: 15, Available: true, FetchedAt: cycleStart}, nil
	}}
	pub := &fakePublisher{}
	s := NewScheduler(products, source, pub, testOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx, 5*time.Millisecond)
	}()

	// Cancel while a fetch is in flight, then let it complete.
	<-started
	cancel()
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(fetchErrs) == 0 {
		t.Fatal("no fetch completed")
	}
	if fetchErrs[0] != nil {
		t.Fatalf("in-flight fetch was cancelled by shutdown: %v", fetchErrs[0])
	}
	products.mu.Lock()
	updates := len(products.updates)
	products.mu.Unlock()
	if updates == 0 {
		t.Fatal("check result was not persisted")
	}
	if pub.count() == 0 {
		t.Fatal("detected events were not published")
	}
}

func TestFirstCheckOnlyEstablishesBaseline(t *testing.T) {
	p := checkedProduct(1)
	p.LastCheckedAt = nil
	products := &fakeProducts{due: []catalog.Product{p}}
	pub := &fakePublisher{}
	s := NewScheduler(products, fixedSnapshot(15), pub, testOptions(), nil)
	s.now = func() time.Time { return cycleStart }

	res, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Checked != 1 || res.Events != 0 {
		t.Fatalf("result %+v, want 1 checked and 0 events", res)
	}
	if pub.count() != 0 {
		t.Fatalf("first check published %d events, want 0", pub.count())
	}
	if len(products.updates) != 1 {
		t.Fatalf("state was not persisted: %d updates", len(products.updates))
	}
	if got := products.updates[0].snap.Price; got != 15 {
		t.Errorf("persisted price %v, want 15", got)
	}
}

func TestSuccessfulCheckPublishesAndReschedules(t *testing.T) {
	p := checkedProduct(1)
	products := &fakeProducts{due: []catalog.Product{p}}
	pub := &fakePublisher{}
	s := NewScheduler(products, fixedSnapshot(15), pub, testOptions(), nil)
	s.now = func() time.Time { return cycleStart }

	res, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Events != 1 {
		t.Fatalf("detected %d events, want 1 price change", res.Events)
	}
	if pub.count() != 1 {
		t.Fatalf("published %d events, want 1", pub.count())
	}
	upd := products.updates[0]
	if want := cycleStart.Add(p.CheckInterval); !upd.nextCheckAt.Equal(want) {
		t.Errorf("next check at %v, want %v", upd.nextCheckAt, want)
	}

	st := s.Status()
	if st.TotalChecked != 1 || st.TotalEvents != 1 {
		t.Errorf("totals %+v, want 1 checked and 1 event", st)
	}
}

func TestFailureBackoffAndFailedTransition(t *testing.T) {
	boom := &fakeSource{fetch: func(context.Context, catalog.Product) (catalog.Snapshot, error) {
		return catalog.Snapshot{}, errors.New("fetch blew up")
	}}

	p1 := checkedProduct(1) // first failure
	p2 := checkedProduct(2)
	p2.FailureCount = 2 // one away from the cap of 3
	products := &fakeProducts{due: []catalog.Product{p1, p2}}
	opts := testOptions()
	s := NewScheduler(products, boom, &fakePublisher{}, opts, nil)
	s.now = func() time.Time { return cycleStart }

	res, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Failures != 2 {
		t.Fatalf("recorded %d failures, want 2", res.Failures)
	}

	byID := map[int64]failureCall{}
	for _, f := range products.failures {
		byID[f.id] = f
	}

	first := byID[1]
	if first.count != 1 || first.status != catalog.StatusActive {
		t.Errorf("first failure: count=%d status=%s, want 1/active", first.count, first.status)
	}
	if want := cycleStart.Add(opts.BackoffBase); !first.nextCheckAt.Equal(want) {
		t.Errorf("first failure retries at %v, want %v", first.nextCheckAt, want)
	}

	capped := byID[2]
	if capped.count != 3 || capped.status != catalog.StatusFailed {
		t.Errorf("capped failure: count=%d status=%s, want 3/failed", capped.count, capped.status)
	}
}

func TestBackoffGrowthIsCapped(t *testing.T) {
	base := 2 * time.Minute
	max := 2 * time.Hour

	cases := []struct {
		failures int
		want     time.Duration
	}{
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{6, 64 * time.Minute},
		{7, 2 * time.Hour},
		{20, 2 * time.Hour},
	}
	for _, tc := range cases {
		if got := backoff(tc.failures, base, max); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.failures, got, tc.want)
		}
	}
}

func TestResetStats(t *testing.T) {
	products := &fakeProducts{due: []catalog.Product{checkedProduct(1)}}
	s := NewScheduler(products, fixedSnapshot(15), &fakePublisher{}, testOptions(), nil)

	if _, err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.Status().TotalChecked == 0 {
		t.Fatal("expected non-zero counters before reset")
	}
	s.ResetStats()
	st := s.Status()
	if st.TotalChecked != 0 || st.TotalEvents != 0 || st.TotalFailures != 0 {
		t.Fatalf("counters not zeroed: %+v", st)
	}
}
