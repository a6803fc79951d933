package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/platform/metrics"
)

// SettlementService records per-quarter scores and resolves winning cells
// by digit matching against the revealed axis permutations. It never moves
// tokens; the prize figure is informational only.
type SettlementService struct {
	store    EntityStore
	notifier Notifier
	trail    auditTrail
	logger   *logging.Logger
	now      func() time.Time
}

func NewSettlementService(
	store EntityStore,
	notifier Notifier,
	recorder audit.Recorder,
	idGen idgen.Generator,
	logger *logging.Logger,
) *SettlementService {
	if notifier == nil {
		notifier = NewNopNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SettlementService{
		store:    store,
		notifier: notifier,
		trail:    newAuditTrail(recorder, idGen, logger, time.Now),
		logger:   logger,
		now:      time.Now,
	}
}

// RecordScoreInput carries one quarter's scores. Home resolves over the top
// axis, Away over the side axis.
type RecordScoreInput struct {
	PoolID  string
	Quarter pool.Quarter
	Home    int
	Away    int
	Confirm bool
	AdminID string
}

// RecordScoreResult reports the resolved winner, if the mapped cell was
// occupied. With a full locked grid every cell is occupied, so a confirmed
// quarter always resolves a winner.
type RecordScoreResult struct {
	Winner   string
	Row, Col int
	Resolved bool
}

// RecordScore stores the quarter's scores and, when the mapped cell is
// occupied, overwrites the quarter's winner record. Re-confirming after an
// edit recomputes the winner from the new digits.
func (s *SettlementService) RecordScore(ctx context.Context, input RecordScoreInput) (RecordScoreResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.RecordScore")
	defer span.End()

	input.PoolID = strings.TrimSpace(input.PoolID)
	if input.PoolID == "" {
		return RecordScoreResult{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}
	if !input.Quarter.IsValid() {
		return RecordScoreResult{}, fmt.Errorf("%w: unknown quarter %q", ErrInvalidInput, input.Quarter)
	}
	if input.Home < 0 || input.Away < 0 {
		return RecordScoreResult{}, fmt.Errorf("%w: scores must be non-negative", ErrInvalidInput)
	}

	var (
		committed pool.Pool
		result    RecordScoreResult
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if err := requireAdmin(ctx, txn, input.AdminID); err != nil {
			return err
		}
		p, ok, err := txn.Pool(ctx, input.PoolID)
		if err != nil {
			return fmt.Errorf("read pool: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: pool %s", ErrNotFound, input.PoolID)
		}
		if !p.IsLocked {
			return fmt.Errorf("%w: scores require revealed numbers, pool %s is still open", ErrPoolNotFull, input.PoolID)
		}

		result = resolveWinner(p, input.Home, input.Away)
		if p.Scores == nil {
			p.Scores = make(map[pool.Quarter]pool.ScoreEntry)
		}
		p.Scores[input.Quarter] = pool.ScoreEntry{
			Home:      input.Home,
			Away:      input.Away,
			Confirmed: input.Confirm,
		}
		if result.Resolved {
			if p.WinningSquares == nil {
				p.WinningSquares = make(map[pool.Quarter]pool.WinnerRecord)
			}
			p.WinningSquares[input.Quarter] = pool.WinnerRecord{
				Row:    result.Row,
				Col:    result.Col,
				Winner: result.Winner,
			}
		}
		p.UpdatedAt = s.now().UTC()
		txn.PutPool(p)
		committed = p
		return nil
	})
	if err != nil {
		return RecordScoreResult{}, err
	}

	metrics.ScoresRecorded.Inc()
	s.notifier.Publish(ctx, committed)
	winnerName := result.Winner
	if !result.Resolved {
		winnerName = "None"
	}
	s.trail.record(ctx, audit.EventScoreRecorded, input.AdminID, input.PoolID,
		fmt.Sprintf("%s: Home %d, Away %d -> Winner: %s",
			strings.ToUpper(string(input.Quarter)), input.Home, input.Away, winnerName))
	s.logger.InfoContext(ctx, "score recorded",
		"pool_id", input.PoolID, "quarter", string(input.Quarter),
		"home", input.Home, "away", input.Away, "winner", winnerName)

	return result, nil
}

// EditScore reopens a quarter by clearing its confirmed flag. The stored
// scores and any prior winner record stay until the next RecordScore
// overwrites them.
func (s *SettlementService) EditScore(ctx context.Context, poolID, adminID string, quarter pool.Quarter) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.EditScore")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}
	if !quarter.IsValid() {
		return fmt.Errorf("%w: unknown quarter %q", ErrInvalidInput, quarter)
	}

	var committed pool.Pool
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if err := requireAdmin(ctx, txn, adminID); err != nil {
			return err
		}
		p, ok, err := txn.Pool(ctx, poolID)
		if err != nil {
			return fmt.Errorf("read pool: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: pool %s", ErrNotFound, poolID)
		}
		entry, ok := p.Scores[quarter]
		if !ok {
			return fmt.Errorf("%w: no score recorded for %s", ErrNotFound, quarter)
		}
		entry.Confirmed = false
		p.Scores[quarter] = entry
		p.UpdatedAt = s.now().UTC()
		txn.PutPool(p)
		committed = p
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventScoreReopened, adminID, poolID,
		fmt.Sprintf("%s score unlocked for editing", strings.ToUpper(string(quarter))))
	s.logger.InfoContext(ctx, "score reopened", "pool_id", poolID, "quarter", string(quarter))

	return nil
}

// Completed reports whether the pool is locked with all five quarters
// confirmed. Read-side helper for callers rendering pool status.
func (s *SettlementService) Completed(p pool.Pool) bool {
	return p.Completed()
}

// resolveWinner maps the score digits through the axis permutations:
// col is the position of the home digit in TopNumbers, row the position of
// the away digit in SideNumbers.
func resolveWinner(p pool.Pool, home, away int) RecordScoreResult {
	col := indexOf(p.TopNumbers, home%10)
	row := indexOf(p.SideNumbers, away%10)
	if row < 0 || col < 0 {
		return RecordScoreResult{}
	}
	cell := p.At(row, col)
	if cell == nil {
		return RecordScoreResult{}
	}
	return RecordScoreResult{
		Winner:   user.DisplayName(cell.FirstName, cell.LastName),
		Row:      row,
		Col:      col,
		Resolved: true,
	}
}

func indexOf(digits []int, d int) int {
	for i, v := range digits {
		if v == d {
			return i
		}
	}
	return -1
}
