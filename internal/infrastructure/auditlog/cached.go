package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/platform/cache"
)

// DefaultCacheTTL bounds how stale the public audit feed may be. The feed
// is polled by every connected client, so reads dominate writes by far.
const DefaultCacheTTL = 2 * time.Second

type recorderLog interface {
	audit.Recorder
	audit.Log
}

// CachedLog wraps a persistent audit log with a short-lived read cache.
// Writes go straight through and invalidate the affected keys.
type CachedLog struct {
	inner recorderLog
	cache *cache.Store
}

func NewCachedLog(inner recorderLog, ttl time.Duration) *CachedLog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedLog{
		inner: inner,
		cache: cache.NewStore(ttl),
	}
}

func (l *CachedLog) Record(ctx context.Context, entry audit.Entry) error {
	if err := l.inner.Record(ctx, entry); err != nil {
		return err
	}

	l.cache.DeletePrefix(ctx, "recent:")
	if entry.ActorID != "" {
		l.cache.DeletePrefix(ctx, "user:"+entry.ActorID+":")
	}
	if entry.TargetID != "" && entry.TargetID != entry.ActorID {
		l.cache.DeletePrefix(ctx, "user:"+entry.TargetID+":")
	}
	return nil
}

func (l *CachedLog) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	key := fmt.Sprintf("recent:%d", limit)
	value, err := l.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return l.inner.ListRecent(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return value.([]audit.Entry), nil
}

func (l *CachedLog) ListForUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	key := fmt.Sprintf("user:%s:%d", userID, limit)
	value, err := l.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return l.inner.ListForUser(ctx, userID, limit)
	})
	if err != nil {
		return nil, err
	}
	return value.([]audit.Entry), nil
}
