package notify

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
)

const (
	defaultFanoutWorkers    = 16
	defaultSubscriberBuffer = 32
)

// MemoryBroker fans pool snapshots out to in-process subscribers. Delivery
// is best-effort: a subscriber whose buffer is full misses that event and
// catches up on the next one, since every event carries the full snapshot.
type MemoryBroker struct {
	logger  *logging.Logger
	workers *ants.Pool
	now     func() time.Time

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan []byte
}

func NewMemoryBroker(logger *logging.Logger) (*MemoryBroker, error) {
	if logger == nil {
		logger = logging.Default()
	}
	workers, err := ants.NewPool(defaultFanoutWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &MemoryBroker{
		logger:  logger,
		workers: workers,
		now:     time.Now,
		subs:    make(map[int]chan []byte),
	}, nil
}

// Subscribe registers a feed of encoded pool events. The returned cancel
// func closes the channel and must be called exactly once.
func (b *MemoryBroker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, defaultSubscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish encodes the snapshot once and hands each subscriber delivery to
// the worker pool. It never blocks the caller.
func (b *MemoryBroker) Publish(ctx context.Context, p pool.Pool) {
	payload, err := encodePoolEvent(p, b.now())
	if err != nil {
		b.logger.WarnContext(ctx, "encode pool event failed", "pool_id", p.ID, "error", err)
		return
	}

	b.mu.RLock()
	targets := make([]chan []byte, 0, len(b.subs))
	for _, ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		ch := ch
		if err := b.workers.Submit(func() { deliver(ch, payload) }); err != nil {
			// Worker pool saturated; deliver inline.
			deliver(ch, payload)
		}
	}
}

// deliver tolerates a subscriber that unsubscribed between the snapshot and
// the send, which closes the channel mid-flight.
func deliver(ch chan []byte, payload []byte) {
	defer func() { _ = recover() }()
	select {
	case ch <- payload:
	default:
	}
}

// Close releases the worker pool and disconnects all subscribers.
func (b *MemoryBroker) Close() {
	b.workers.Release()

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
