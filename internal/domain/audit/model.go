package audit

import (
	"context"
	"time"
)

// EventKind classifies a committed state change.
type EventKind string

const (
	EventSquareClaimed    EventKind = "square_claimed"
	EventSquareReleased   EventKind = "square_released"
	EventSquareAssigned   EventKind = "square_assigned"
	EventSquareCleared    EventKind = "square_cleared"
	EventRandomAssignment EventKind = "random_assignment"
	EventRefundSkipped    EventKind = "refund_skipped"
	EventPoolCreated      EventKind = "pool_created"
	EventPoolDeleted      EventKind = "pool_deleted"
	EventPoolLocked       EventKind = "pool_locked"
	EventLockDeferred     EventKind = "lock_deferred"
	EventStartTimeChanged EventKind = "start_time_changed"
	EventScoreRecorded    EventKind = "score_recorded"
	EventScoreReopened    EventKind = "score_reopened"
	EventTokensAdjusted   EventKind = "tokens_adjusted"
	EventUserRegistered   EventKind = "user_registered"
)

// Entry is one audit record. ActorID is who triggered the change, TargetID
// who (or what) it affected; either may be empty.
type Entry struct {
	ID         string
	Kind       EventKind
	ActorID    string
	TargetID   string
	Detail     string
	OccurredAt time.Time
}

// Recorder receives entries after a transaction commits. Recording is
// best-effort: failures are logged by callers, never propagated into the
// transactional path.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Log is the retrieval side of the audit trail.
type Log interface {
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	// ListForUser returns entries the user produced or was targeted by,
	// newest first, resolved in a single query.
	ListForUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Entry) error { return nil }

// NopRecorder discards every entry.
func NopRecorder() Recorder {
	return nopRecorder{}
}
