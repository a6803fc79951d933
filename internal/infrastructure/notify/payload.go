package notify

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
)

// EventPoolUpdated is the single event kind on the change feed. Subscribers
// re-render from the embedded snapshot rather than diffing.
const EventPoolUpdated = "pool_updated"

type poolEvent struct {
	Event      string    `json:"event"`
	PoolID     string    `json:"poolId"`
	Pool       pool.Pool `json:"pool"`
	OccurredAt time.Time `json:"occurredAt"`
}

// encodePoolEvent streams the wire payload through a pooled buffer so
// high-frequency claim bursts do not churn encoder allocations.
func encodePoolEvent(p pool.Pool, at time.Time) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	enc := sonic.ConfigDefault.NewEncoder(buf)
	if err := enc.Encode(poolEvent{
		Event:      EventPoolUpdated,
		PoolID:     p.ID,
		Pool:       p,
		OccurredAt: at.UTC(),
	}); err != nil {
		return nil, fmt.Errorf("encode pool event: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}
