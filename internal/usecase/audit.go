package usecase

import (
	"context"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
)

// auditTrail stamps and delivers audit entries after a commit. Recording is
// best-effort and never feeds back into the transactional path.
type auditTrail struct {
	recorder audit.Recorder
	idGen    idgen.Generator
	logger   *logging.Logger
	now      func() time.Time
}

func newAuditTrail(recorder audit.Recorder, idGen idgen.Generator, logger *logging.Logger, now func() time.Time) auditTrail {
	if recorder == nil {
		recorder = audit.NopRecorder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if now == nil {
		now = time.Now
	}
	return auditTrail{recorder: recorder, idGen: idGen, logger: logger, now: now}
}

func (a auditTrail) record(ctx context.Context, kind audit.EventKind, actorID, targetID, detail string) {
	entryID, err := a.idGen.NewID()
	if err != nil {
		a.logger.WarnContext(ctx, "generate audit entry id failed", "error", err)
		return
	}
	entry := audit.Entry{
		ID:         entryID,
		Kind:       kind,
		ActorID:    actorID,
		TargetID:   targetID,
		Detail:     detail,
		OccurredAt: a.now().UTC(),
	}
	if err := a.recorder.Record(ctx, entry); err != nil {
		a.logger.WarnContext(ctx, "audit record failed", "kind", string(kind), "error", err)
	}
}
