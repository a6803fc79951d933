package auditlog

import (
	"context"
	"sync"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
)

const defaultCapacity = 1000

// MemoryLog keeps the newest entries in a bounded in-process buffer. It
// implements both audit.Recorder and audit.Log.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []audit.Entry
	cap     int
}

func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryLog{cap: capacity}
}

func (l *MemoryLog) Record(_ context.Context, entry audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	return nil
}

func (l *MemoryLog) ListRecent(_ context.Context, limit int) ([]audit.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.collect(limit, func(audit.Entry) bool { return true }), nil
}

// ListForUser matches entries where the user is actor or target in one pass.
func (l *MemoryLog) ListForUser(_ context.Context, userID string, limit int) ([]audit.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.collect(limit, func(e audit.Entry) bool {
		return e.ActorID == userID || e.TargetID == userID
	}), nil
}

// collect walks newest-first under the caller's lock.
func (l *MemoryLog) collect(limit int, match func(audit.Entry) bool) []audit.Entry {
	out := make([]audit.Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if match(l.entries[i]) {
			out = append(out, l.entries[i])
		}
	}
	return out
}
