package notify

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/platform/resilience"
)

// DefaultChannel carries pool snapshots between instances.
const DefaultChannel = "squares-pool.pool-events"

// RedisNotifier publishes pool snapshots on a Redis channel so every
// instance behind a load balancer sees claims made through its peers.
// Publishing is best-effort; a Redis outage never fails the write path.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	now     func() time.Time
}

func NewRedisNotifier(client *redis.Client, channel string, logger *logging.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	return &RedisNotifier{
		client:  client,
		channel: channel,
		breaker: resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenProbes),
		logger:  logger,
		now:     time.Now,
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, p pool.Pool) {
	payload, err := encodePoolEvent(p, n.now())
	if err != nil {
		n.logger.WarnContext(ctx, "encode pool event failed", "pool_id", p.ID, "error", err)
		return
	}

	// The breaker keeps a Redis outage from stalling every write with
	// publish timeouts. Skipped snapshots are recovered on the next event.
	if err := n.breaker.Allow(); err != nil {
		n.logger.DebugContext(ctx, "pool event dropped, breaker open",
			"pool_id", p.ID, "channel", n.channel)
		return
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.breaker.RecordFailure()
		n.logger.WarnContext(ctx, "publish pool event failed",
			"pool_id", p.ID, "channel", n.channel,
			"error", errors.Wrap(err, "redis publish"))
		return
	}
	n.breaker.RecordSuccess()
}

// Subscribe consumes peer events and replays them into the local broker so
// in-process subscribers see cluster-wide changes. Blocks until ctx ends.
func (n *RedisNotifier) Subscribe(ctx context.Context, broker *MemoryBroker) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			broker.forward([]byte(msg.Payload))
		}
	}
}

// forward hands an already-encoded payload to local subscribers.
func (b *MemoryBroker) forward(payload []byte) {
	b.mu.RLock()
	targets := make([]chan []byte, 0, len(b.subs))
	for _, ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		deliver(ch, payload)
	}
}
