package services

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/platform/metrics"
)

// ErrQueueClosed is returned by RebuildNow after Shutdown.
var ErrQueueClosed = errors.New("rebuild queue is closed")

// RebuildQueue schedules running-balance rebuilds on background goroutines.
//
// Each account has at most one worker goroutine. The worker drains the account's
// pending entry, runs the rebuild, and loops while new requests arrived during the
// run, so an enqueue during a rebuild yields exactly one follow-up. Different
// accounts rebuild concurrently, bounded by the semaphore.
type RebuildQueue struct {
	BaseService
	rebuilder portssvc.BalanceRebuilderSvc
	sem       chan struct{}

	mu       sync.Mutex
	pending  map[string]time.Time     // account -> earliest from-date still to rebuild
	inFlight map[string]chan struct{} // account -> closed when the running rebuild ends
	workers  map[string]struct{}      // accounts with a live worker goroutine
	busy     bool
	idle     chan struct{} // closed while there is no pending, in-flight or worker state
	closed   bool
}

// NewRebuildQueue creates a queue running at most concurrency rebuilds at once.
func NewRebuildQueue(rebuilder portssvc.BalanceRebuilderSvc, concurrency int) *RebuildQueue {
	if concurrency < 1 {
		concurrency = 1
	}
	idle := make(chan struct{})
	close(idle)
	return &RebuildQueue{
		rebuilder: rebuilder,
		sem:       make(chan struct{}, concurrency),
		pending:   make(map[string]time.Time),
		inFlight:  make(map[string]chan struct{}),
		workers:   make(map[string]struct{}),
		idle:      idle,
	}
}

var _ portssvc.RebuildQueueSvc = (*RebuildQueue)(nil)

func (q *RebuildQueue) Enqueue(ctx context.Context, accountID string, fromDate time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueueLocked(ctx, accountID, fromDate)
}

func (q *RebuildQueue) EnqueueMany(ctx context.Context, accountIDs []string, fromDate time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range accountIDs {
		q.enqueueLocked(ctx, id, fromDate)
	}
}

func (q *RebuildQueue) enqueueLocked(ctx context.Context, accountID string, fromDate time.Time) {
	if q.closed {
		q.GetLogger(ctx).Warn("Rebuild requested after queue shutdown", slog.String("account_id", accountID))
		return
	}
	if existing, ok := q.pending[accountID]; ok {
		if fromDate.Before(existing) {
			q.pending[accountID] = fromDate
		}
		return
	}

	q.pending[accountID] = fromDate
	q.markBusyLocked()
	metrics.RebuildQueuePending.Set(float64(len(q.pending)))

	if _, running := q.workers[accountID]; running {
		return
	}
	q.workers[accountID] = struct{}{}
	go q.work(context.WithoutCancel(ctx), accountID)
}

// work is the per-account worker loop.
func (q *RebuildQueue) work(ctx context.Context, accountID string) {
	q.sem <- struct{}{}
	defer func() { <-q.sem }()

	for {
		q.mu.Lock()
		if done, ok := q.inFlight[accountID]; ok {
			// a synchronous RebuildNow holds the account
			q.mu.Unlock()
			<-done
			continue
		}
		fromDate, ok := q.pending[accountID]
		if !ok {
			delete(q.workers, accountID)
			q.signalIfIdleLocked()
			q.mu.Unlock()
			return
		}
		delete(q.pending, accountID)
		done := q.beginLocked(accountID)
		q.mu.Unlock()

		q.run(ctx, accountID, fromDate)
		q.finish(accountID, done)
	}
}

// run executes one rebuild. Failures are logged and counted, never returned.
func (q *RebuildQueue) run(ctx context.Context, accountID string, fromDate time.Time) *domain.RebuildResult {
	start := time.Now()
	result, err := q.rebuilder.RebuildRunningBalances(ctx, accountID)
	metrics.RebuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RebuildRuns.WithLabelValues("error").Inc()
		q.LogError(ctx, err, "Running-balance rebuild failed",
			slog.String("account_id", accountID),
			slog.Time("from_date", fromDate))
		return nil
	}
	metrics.RebuildRuns.WithLabelValues("ok").Inc()
	metrics.RebuildRowsWritten.Add(float64(result.Written))
	q.LogDebug(ctx, "Running-balance rebuild finished",
		slog.String("account_id", accountID),
		slog.Time("from_date", fromDate),
		slog.Int("written", result.Written))
	return result
}

// RebuildNow rebuilds accountID synchronously on the caller's goroutine. It waits
// for any rebuild already running for the account, and subsumes a pending one.
func (q *RebuildQueue) RebuildNow(ctx context.Context, accountID string) (*domain.RebuildResult, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		done, ok := q.inFlight[accountID]
		if !ok {
			break
		}
		q.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	delete(q.pending, accountID)
	metrics.RebuildQueuePending.Set(float64(len(q.pending)))
	q.markBusyLocked()
	done := q.beginLocked(accountID)
	q.mu.Unlock()
	defer q.finish(accountID, done)

	result, err := q.rebuilder.RebuildRunningBalances(ctx, accountID)
	if err != nil {
		metrics.RebuildRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RebuildRuns.WithLabelValues("ok").Inc()
	metrics.RebuildRowsWritten.Add(float64(result.Written))
	return result, nil
}

func (q *RebuildQueue) beginLocked(accountID string) chan struct{} {
	done := make(chan struct{})
	q.inFlight[accountID] = done
	metrics.RebuildInFlight.Set(float64(len(q.inFlight)))
	return done
}

func (q *RebuildQueue) finish(accountID string, done chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, accountID)
	close(done)
	metrics.RebuildInFlight.Set(float64(len(q.inFlight)))
	q.signalIfIdleLocked()
}

func (q *RebuildQueue) markBusyLocked() {
	if !q.busy {
		q.busy = true
		q.idle = make(chan struct{})
	}
}

func (q *RebuildQueue) signalIfIdleLocked() {
	if q.busy && len(q.pending) == 0 && len(q.inFlight) == 0 && len(q.workers) == 0 {
		q.busy = false
		close(q.idle)
	}
}

// Flush blocks until the queue has no pending or in-flight rebuilds, or ctx ends.
func (q *RebuildQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting new work and waits for queued rebuilds to drain.
func (q *RebuildQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.Flush(ctx)
}

func (q *RebuildQueue) Pending() map[string]time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return maps.Clone(q.pending)
}

func (q *RebuildQueue) InFlight() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := slices.Collect(maps.Keys(q.inFlight))
	slices.Sort(ids)
	return ids
}
