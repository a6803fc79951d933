package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
)

// PostgresLog persists audit entries in the audit_log table. It implements
// both audit.Recorder and audit.Log.
type PostgresLog struct {
	db *sqlx.DB
}

func NewPostgresLog(db *sqlx.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

type auditRowModel struct {
	ID         string    `db:"id"`
	Kind       string    `db:"kind"`
	ActorID    string    `db:"actor_id"`
	TargetID   string    `db:"target_id"`
	Detail     string    `db:"detail"`
	OccurredAt time.Time `db:"occurred_at"`
}

func (l *PostgresLog) Record(ctx context.Context, entry audit.Entry) error {
	_, err := l.db.NamedExecContext(ctx, `INSERT INTO audit_log
(id, kind, actor_id, target_id, detail, occurred_at)
VALUES (:id, :kind, :actor_id, :target_id, :detail, :occurred_at)`, auditRowModel{
		ID:         entry.ID,
		Kind:       string(entry.Kind),
		ActorID:    entry.ActorID,
		TargetID:   entry.TargetID,
		Detail:     entry.Detail,
		OccurredAt: entry.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (l *PostgresLog) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	var rows []auditRowModel
	err := l.db.SelectContext(ctx, &rows, `SELECT id, kind, actor_id, target_id, detail, occurred_at
FROM audit_log ORDER BY occurred_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entriesFromRows(rows), nil
}

// ListForUser resolves actor and target matches in a single OR query.
func (l *PostgresLog) ListForUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	var rows []auditRowModel
	err := l.db.SelectContext(ctx, &rows, `SELECT id, kind, actor_id, target_id, detail, occurred_at
FROM audit_log WHERE actor_id = $1 OR target_id = $1
ORDER BY occurred_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for user: %w", err)
	}
	return entriesFromRows(rows), nil
}

func entriesFromRows(rows []auditRowModel) []audit.Entry {
	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, audit.Entry{
			ID:         row.ID,
			Kind:       audit.EventKind(row.Kind),
			ActorID:    row.ActorID,
			TargetID:   row.TargetID,
			Detail:     row.Detail,
			OccurredAt: row.OccurredAt,
		})
	}
	return out
}
