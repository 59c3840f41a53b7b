// Package monitor runs the product check cycle: select due products, fetch a
// fresh snapshot for each, detect events against stored state, and hand the
// events to the notification pipeline.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/catalog"
	"github.com/albapepper/dealwatch/internal/snapshot"
)

// ProductStore is the catalog surface the scheduler needs. *catalog.Store
// implements it on Postgres.
type ProductStore interface {
	Due(ctx context.Context, limit int) ([]catalog.Product, error)
	UpdateAfterCheck(ctx context.Context, id int64, snap catalog.Snapshot, belowTargetNotified bool, nextCheckAt time.Time) error
	RecordFailure(ctx context.Context, id int64, failureCount int, status catalog.ProductStatus, nextCheckAt time.Time) error
	Reactivate(ctx context.Context, id int64) error
}

// Publisher receives the events detected in a cycle. *alerts.Pipeline
// implements it.
type Publisher interface {
	Publish(ctx context.Context, events []alerts.Event) error
}

// Options tune one scheduler instance.
type Options struct {
	Workers      int
	DueBatch     int
	FetchTimeout time.Duration
	MaxFailures  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

// CycleResult summarizes one completed check cycle.
type CycleResult struct {
	Due      int           `json:"due"`
	Checked  int           `json:"checked"`
	Events   int           `json:"events"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	Running       bool        `json:"running"`
	LastCycleAt   time.Time   `json:"last_cycle_at"`
	LastResult    CycleResult `json:"last_result"`
	TotalChecked  int64       `json:"total_checked"`
	TotalEvents   int64       `json:"total_events"`
	TotalFailures int64       `json:"total_failures"`
}

// Scheduler owns the check cycle. At most one cycle runs at a time; a run
// requested while one is in flight is rejected, never queued.
type Scheduler struct {
	products ProductStore
	source   snapshot.Source
	pipeline Publisher
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool

	mu            sync.Mutex
	lastCycleAt   time.Time
	lastResult    CycleResult
	totalChecked  int64
	totalEvents   int64
	totalFailures int64
}

func NewScheduler(products ProductStore, source snapshot.Source, pipeline Publisher, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.DueBatch < 1 {
		opts.DueBatch = 500
	}
	if opts.MaxFailures < 1 {
		opts.MaxFailures = 5
	}
	return &Scheduler{
		products: products,
		source:   source,
		pipeline: pipeline,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the cycle on a fixed interval until ctx is cancelled. An overlap
// with a still-running cycle is skipped, not stacked. Cancellation stops the
// timer only: a cycle already in flight runs to completion on a detached
// context, so shutdown never aborts a fetch or loses its persisted result.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Monitoring scheduler started", "interval", interval, "workers", s.opts.Workers)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Monitoring scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunCycle(context.WithoutCancel(ctx)); err != nil && err != alerts.ErrCycleRunning {
				s.logger.Error("Check cycle failed", "error", err)
			}
		}
	}
}

// ForceRun triggers an immediate cycle. Returns alerts.ErrCycleRunning when a
// cycle is already in flight.
func (s *Scheduler) ForceRun(ctx context.Context) (CycleResult, error) {
	return s.RunCycle(ctx)
}

// RunCycle executes one full check cycle.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return CycleResult{}, alerts.ErrCycleRunning
	}
	defer s.running.Store(false)

	start := s.now()
	var result CycleResult

	due, err := s.products.Due(ctx, s.opts.DueBatch)
	if err != nil {
		return result, err
	}
	result.Due = len(due)
	if len(due) == 0 {
		s.finishCycle(start, result)
		return result, nil
	}

	s.logger.Info("Check cycle started", "due", len(due))

	workers := s.opts.Workers
	if workers > len(due) {
		workers = len(due)
	}

	ch := make(chan catalog.Product, len(due))
	for _, p := range due {
		ch <- p
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range ch {
				events, err := s.checkOne(ctx, p)

				mu.Lock()
				if err != nil {
					result.Failures++
				} else {
					result.Checked++
					result.Events += len(events)
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	s.finishCycle(start, result)

	s.logger.Info("Check cycle complete",
		"checked", result.Checked,
		"events", result.Events,
		"failures", result.Failures,
		"duration", result.Duration)
	return result, nil
}

// checkOne fetches one product and applies the success or failure path.
func (s *Scheduler) checkOne(ctx context.Context, p catalog.Product) ([]alerts.Event, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	snap, err := s.source.Fetch(fetchCtx, p)
	cancel()

	if err != nil {
		s.recordFailure(ctx, p, err)
		return nil, err
	}

	// First successful check only establishes a baseline. Detection needs a
	// prior observation to compare against.
	var events []alerts.Event
	if p.LastCheckedAt != nil {
		events = alerts.Detect(p, snap)
	}

	nextCheck := s.now().Add(p.CheckInterval)
	flag := alerts.NextBelowTargetFlag(p, snap)
	if err := s.products.UpdateAfterCheck(ctx, p.ID, snap, flag, nextCheck); err != nil {
		s.logger.Error("Failed to persist check result", "product_id", p.ID, "error", err)
		return nil, err
	}

	if len(events) > 0 {
		if err := s.pipeline.Publish(ctx, events); err != nil {
			s.logger.Error("Failed to publish events", "product_id", p.ID, "error", err)
		}
	}
	return events, nil
}

// recordFailure increments the failure count, schedules the retry with
// exponential backoff, and marks the product failed once the count reaches
// the cap.
func (s *Scheduler) recordFailure(ctx context.Context, p catalog.Product, cause error) {
	count := p.FailureCount + 1
	status := catalog.StatusActive
	if count >= s.opts.MaxFailures {
		status = catalog.StatusFailed
	}

	next := s.now().Add(backoff(count, s.opts.BackoffBase, s.opts.BackoffMax))
	if err := s.products.RecordFailure(ctx, p.ID, count, status, next); err != nil {
		s.logger.Error("Failed to record check failure", "product_id", p.ID, "error", err)
		return
	}

	if status == catalog.StatusFailed {
		s.logger.Warn("Product marked failed",
			"product_id", p.ID, "failures", count, "error", cause)
	} else {
		s.logger.Warn("Product check failed",
			"product_id", p.ID, "failures", count, "retry_at", next, "error", cause)
	}
}

// backoff returns base*2^(n-1) capped at max.
func backoff(failures int, base, max time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Reactivate clears a failed product back into rotation.
func (s *Scheduler) Reactivate(ctx context.Context, id int64) error {
	return s.products.Reactivate(ctx, id)
}

func (s *Scheduler) finishCycle(start time.Time, result CycleResult) {
	result.Duration = s.now().Sub(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycleAt = start
	s.lastResult = result
	s.totalChecked += int64(result.Checked)
	s.totalEvents += int64(result.Events)
	s.totalFailures += int64(result.Failures)
}

// Status reports whether a cycle is running and the cumulative counters.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:       s.running.Load(),
		LastCycleAt:   s.lastCycleAt,
		LastResult:    s.lastResult,
		TotalChecked:  s.totalChecked,
		TotalEvents:   s.totalEvents,
		TotalFailures: s.totalFailures,
	}
}

// ResetStats zeroes the cumulative counters. The in-flight flag is untouched.
func (s *Scheduler) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = CycleResult{}
	s.totalChecked = 0
	s.totalEvents = 0
	s.totalFailures = 0
}
