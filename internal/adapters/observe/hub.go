// Package observe fans ledger change sets out to live subscribers, such as the
// server-sent events feed.
package observe

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/platform/metrics"
)

// DefaultBuffer is the per-subscriber buffer used when Subscribe is given none.
const DefaultBuffer = 32

// Hub is a ChangeNotifier that broadcasts to every subscriber. Notify never blocks
// the writer: a subscriber whose buffer is full misses the change set.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan domain.ChangeSet
	nextID uint64
	closed bool
	logger *slog.Logger
}

var _ portssvc.ChangeNotifier = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]chan domain.ChangeSet),
		logger: logger,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan domain.ChangeSet, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan domain.ChangeSet, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	metrics.ChangeSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		metrics.ChangeSubscribers.Dec()
	}
}

// Notify implements ChangeNotifier.
func (h *Hub) Notify(ctx context.Context, changes domain.ChangeSet) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- changes:
		default:
			metrics.ChangesDropped.Inc()
			h.logger.WarnContext(ctx, "Dropping change set for slow subscriber",
				slog.Uint64("subscriber", id), slog.String("action", string(changes.Action)))
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
		metrics.ChangeSubscribers.Dec()
	}
}
