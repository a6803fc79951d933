package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/platform/metrics"
	"github.com/poolside-labs/squares-pool/internal/platform/random"
)

// ReservationService claims, releases, and assigns grid cells. Every
// operation is one atomic transaction that re-validates its preconditions
// against freshly-read state; contention resolves through the store's
// commit semantics, never through internal retries.
type ReservationService struct {
	store    EntityStore
	notifier Notifier
	trail    auditTrail
	rng      *random.Generator
	logger   *logging.Logger
	now      func() time.Time
}

func NewReservationService(
	store EntityStore,
	notifier Notifier,
	recorder audit.Recorder,
	idGen idgen.Generator,
	rng *random.Generator,
	logger *logging.Logger,
) *ReservationService {
	if notifier == nil {
		notifier = NewNopNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReservationService{
		store:    store,
		notifier: notifier,
		trail:    newAuditTrail(recorder, idGen, logger, time.Now),
		rng:      rng,
		logger:   logger,
		now:      time.Now,
	}
}

// RandomAssignInput describes a batch draw over the empty cells.
type RandomAssignInput struct {
	PoolID           string
	TargetUserID     string
	Count            int
	ActorID          string
	InitiatedByAdmin bool
}

// RandomAssignResult lists the drawn cells and the target's balance after
// the single batch debit.
type RandomAssignResult struct {
	Cells      []pool.CellRef
	NewBalance int
}

// ClaimSquare reserves (row, col) for userID, debiting TokensPerSquare.
// Returns the user's new balance. Exactly one of any set of concurrent
// claims on the same cell succeeds; the rest observe ErrSquareTaken.
func (s *ReservationService) ClaimSquare(ctx context.Context, poolID, userID string, row, col int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReservationService.ClaimSquare")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	userID = strings.TrimSpace(userID)
	if poolID == "" || userID == "" {
		return 0, fmt.Errorf("%w: pool id and user id are required", ErrInvalidInput)
	}
	if !pool.InBounds(row, col) {
		return 0, fmt.Errorf("%w: cell (%d, %d) is out of bounds", ErrInvalidInput, row, col)
	}

	var (
		committed pool.Pool
		balance   int
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		p, u, err := readPoolAndUser(ctx, txn, poolID, userID)
		if err != nil {
			return err
		}
		if p.IsLocked {
			return fmt.Errorf("%w: pool %s", ErrPoolLocked, poolID)
		}
		if p.At(row, col) != nil {
			return fmt.Errorf("%w: cell (%d, %d)", ErrSquareTaken, row, col)
		}
		if u.Tokens < p.TokensPerSquare {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientTokens, p.TokensPerSquare, u.Tokens)
		}

		occupy(&p, &u, row, col, s.now().UTC())
		txn.PutPool(p)
		txn.PutUser(u)
		committed = p
		balance = u.Tokens
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSquareTaken) {
			metrics.ClaimConflicts.Inc()
		}
		return 0, err
	}

	metrics.SquaresClaimed.Inc()
	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventSquareClaimed, userID, "",
		fmt.Sprintf("Selected square (%d, %d) in %s for %d token(s). Tokens: %d -> %d",
			row, col, committed.Name, committed.TokensPerSquare, balance+committed.TokensPerSquare, balance))
	s.logger.InfoContext(ctx, "square claimed",
		"pool_id", poolID, "user_id", userID, "row", row, "col", col, "balance", balance)

	return balance, nil
}

// ReleaseSquare clears the caller's own cell and refunds TokensPerSquare.
// The cell clear and the refund are one transaction.
func (s *ReservationService) ReleaseSquare(ctx context.Context, poolID, userID string, row, col int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReservationService.ReleaseSquare")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	userID = strings.TrimSpace(userID)
	if poolID == "" || userID == "" {
		return 0, fmt.Errorf("%w: pool id and user id are required", ErrInvalidInput)
	}
	if !pool.InBounds(row, col) {
		return 0, fmt.Errorf("%w: cell (%d, %d) is out of bounds", ErrInvalidInput, row, col)
	}

	var (
		committed pool.Pool
		balance   int
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		p, u, err := readPoolAndUser(ctx, txn, poolID, userID)
		if err != nil {
			return err
		}
		if p.IsLocked {
			return fmt.Errorf("%w: pool %s", ErrPoolLocked, poolID)
		}
		cell := p.At(row, col)
		if cell == nil {
			return fmt.Errorf("%w: cell (%d, %d) is empty", ErrNotFound, row, col)
		}
		if cell.UserID != userID {
			return fmt.Errorf("%w: cell (%d, %d) belongs to another user", ErrUnauthorized, row, col)
		}

		now := s.now().UTC()
		p.SetCell(row, col, nil)
		p.UpdatedAt = now
		u.Tokens += p.TokensPerSquare
		u.TokensSpent -= p.TokensPerSquare
		u.UpdatedAt = now
		txn.PutPool(p)
		txn.PutUser(u)
		committed = p
		balance = u.Tokens
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.SquaresReleased.Inc()
	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventSquareReleased, userID, "",
		fmt.Sprintf("Removed own selection from square (%d, %d) in %s. %d token(s) refunded. Tokens: %d -> %d",
			row, col, committed.Name, committed.TokensPerSquare, balance-committed.TokensPerSquare, balance))
	s.logger.InfoContext(ctx, "square released",
		"pool_id", poolID, "user_id", userID, "row", row, "col", col, "balance", balance)

	return balance, nil
}

// AdminAssign claims a cell on behalf of targetUserID. Same preconditions
// and effects as ClaimSquare, gated on the actor being an admin.
func (s *ReservationService) AdminAssign(ctx context.Context, poolID, adminID, targetUserID string, row, col int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReservationService.AdminAssign")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	adminID = strings.TrimSpace(adminID)
	targetUserID = strings.TrimSpace(targetUserID)
	if poolID == "" || adminID == "" || targetUserID == "" {
		return 0, fmt.Errorf("%w: pool id, admin id and target user id are required", ErrInvalidInput)
	}
	if !pool.InBounds(row, col) {
		return 0, fmt.Errorf("%w: cell (%d, %d) is out of bounds", ErrInvalidInput, row, col)
	}

	var (
		committed pool.Pool
		target    user.User
		balance   int
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if err := requireAdmin(ctx, txn, adminID); err != nil {
			return err
		}
		p, u, err := readPoolAndUser(ctx, txn, poolID, targetUserID)
		if err != nil {
			return err
		}
		if p.IsLocked {
			return fmt.Errorf("%w: pool %s", ErrPoolLocked, poolID)
		}
		if p.At(row, col) != nil {
			return fmt.Errorf("%w: cell (%d, %d)", ErrSquareTaken, row, col)
		}
		if u.Tokens < p.TokensPerSquare {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientTokens, p.TokensPerSquare, u.Tokens)
		}

		occupy(&p, &u, row, col, s.now().UTC())
		txn.PutPool(p)
		txn.PutUser(u)
		committed = p
		target = u
		balance = u.Tokens
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSquareTaken) {
			metrics.ClaimConflicts.Inc()
		}
		return 0, err
	}

	metrics.SquaresClaimed.Inc()
	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventSquareAssigned, adminID, targetUserID,
		fmt.Sprintf("Admin assigned square (%d, %d) in %s to %s for %d token(s). Tokens: %d -> %d",
			row, col, committed.Name, user.DisplayName(target.FirstName, target.LastName),
			committed.TokensPerSquare, balance+committed.TokensPerSquare, balance))
	s.logger.InfoContext(ctx, "square assigned by admin",
		"pool_id", poolID, "admin_id", adminID, "target_user_id", targetUserID, "row", row, "col", col)

	return balance, nil
}

// AdminClear removes an occupancy in any pool state and refunds its prior
// owner, reading the owner's balance fresh at clear time. A missing owner
// still clears the cell; the skipped refund is surfaced as an audit anomaly.
func (s *ReservationService) AdminClear(ctx context.Context, poolID, adminID string, row, col int) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReservationService.AdminClear")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	adminID = strings.TrimSpace(adminID)
	if poolID == "" || adminID == "" {
		return fmt.Errorf("%w: pool id and admin id are required", ErrInvalidInput)
	}
	if !pool.InBounds(row, col) {
		return fmt.Errorf("%w: cell (%d, %d) is out of bounds", ErrInvalidInput, row, col)
	}

	var (
		committed     pool.Pool
		cleared       pool.Occupancy
		refundSkipped bool
		balance       int
	)
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
		cell := p.At(row, col)
		if cell == nil {
			return fmt.Errorf("%w: cell (%d, %d) is empty", ErrNotFound, row, col)
		}
		cleared = *cell

		now := s.now().UTC()
		p.SetCell(row, col, nil)
		p.UpdatedAt = now
		txn.PutPool(p)

		owner, ok, err := txn.User(ctx, cell.UserID)
		if err != nil {
			return fmt.Errorf("read owner: %w", err)
		}
		if !ok {
			// Owner deleted since claiming. Clear anyway, skip the refund.
			refundSkipped = true
			committed = p
			return nil
		}
		owner.Tokens += p.TokensPerSquare
		owner.TokensSpent -= p.TokensPerSquare
		owner.UpdatedAt = now
		txn.PutUser(owner)
		committed = p
		balance = owner.Tokens
		return nil
	})
	if err != nil {
		return err
	}

	metrics.SquaresReleased.Inc()
	s.notifier.Publish(ctx, committed)
	if refundSkipped {
		s.trail.record(ctx, audit.EventRefundSkipped, adminID, cleared.UserID,
			fmt.Sprintf("Removed square (%d, %d) in %s. Owner %s not found; refund skipped",
				row, col, committed.Name, cleared.UserID))
		s.logger.WarnContext(ctx, "cleared square without refund, owner missing",
			"pool_id", poolID, "owner_id", cleared.UserID, "row", row, "col", col)
		return nil
	}
	s.trail.record(ctx, audit.EventSquareCleared, adminID, cleared.UserID,
		fmt.Sprintf("Removed %s from square (%d, %d) in %s. %d token(s) refunded. Tokens: %d -> %d",
			user.DisplayName(cleared.FirstName, cleared.LastName), row, col, committed.Name,
			committed.TokensPerSquare, balance-committed.TokensPerSquare, balance))
	s.logger.InfoContext(ctx, "square cleared by admin",
		"pool_id", poolID, "admin_id", adminID, "owner_id", cleared.UserID, "row", row, "col", col)

	return nil
}

// RandomAssign draws Count cells uniformly without replacement from the
// empty set and assigns them all to the target user in one transaction with
// a single batch debit.
func (s *ReservationService) RandomAssign(ctx context.Context, input RandomAssignInput) (RandomAssignResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReservationService.RandomAssign")
	defer span.End()

	input.PoolID = strings.TrimSpace(input.PoolID)
	input.TargetUserID = strings.TrimSpace(input.TargetUserID)
	input.ActorID = strings.TrimSpace(input.ActorID)
	if input.PoolID == "" || input.TargetUserID == "" {
		return RandomAssignResult{}, fmt.Errorf("%w: pool id and target user id are required", ErrInvalidInput)
	}
	if input.Count < 1 {
		return RandomAssignResult{}, fmt.Errorf("%w: count must be at least 1", ErrInvalidInput)
	}
	if !input.InitiatedByAdmin && input.ActorID != "" && input.ActorID != input.TargetUserID {
		return RandomAssignResult{}, fmt.Errorf("%w: users may only draw squares for themselves", ErrUnauthorized)
	}

	var (
		committed pool.Pool
		cells     []pool.CellRef
		cost      int
		balance   int
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if input.InitiatedByAdmin {
			if err := requireAdmin(ctx, txn, input.ActorID); err != nil {
				return err
			}
		}
		p, u, err := readPoolAndUser(ctx, txn, input.PoolID, input.TargetUserID)
		if err != nil {
			return err
		}
		if p.IsLocked {
			return fmt.Errorf("%w: pool %s", ErrPoolLocked, input.PoolID)
		}

		empty := p.EmptyCells()
		if len(empty) < input.Count {
			return &InsufficientSquaresError{Requested: input.Count, Available: len(empty)}
		}
		cost = input.Count * p.TokensPerSquare
		if u.Tokens < cost {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientTokens, cost, u.Tokens)
		}

		now := s.now().UTC()
		cells = make([]pool.CellRef, 0, input.Count)
		for _, i := range s.rng.Sample(len(empty), input.Count) {
			cell := empty[i]
			p.SetCell(cell.Row, cell.Col, &pool.Occupancy{
				UserID:    u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
			})
			cells = append(cells, cell)
		}
		p.UpdatedAt = now
		u.Tokens -= cost
		u.TokensSpent += cost
		u.UpdatedAt = now
		txn.PutPool(p)
		txn.PutUser(u)
		committed = p
		balance = u.Tokens
		return nil
	})
	if err != nil {
		return RandomAssignResult{}, err
	}

	metrics.SquaresClaimed.Add(float64(input.Count))
	s.notifier.Publish(ctx, committed)
	kind := audit.EventRandomAssignment
	actor := input.ActorID
	if actor == "" {
		actor = input.TargetUserID
	}
	s.trail.record(ctx, kind, actor, input.TargetUserID,
		fmt.Sprintf("Randomly assigned %d square(s) in %s: %s. Cost: %d token(s). Tokens: %d -> %d",
			input.Count, committed.Name, formatCells(cells), cost, balance+cost, balance))
	s.logger.InfoContext(ctx, "random squares assigned",
		"pool_id", input.PoolID, "target_user_id", input.TargetUserID,
		"count", input.Count, "cost", cost, "balance", balance)

	return RandomAssignResult{Cells: cells, NewBalance: balance}, nil
}

func occupy(p *pool.Pool, u *user.User, row, col int, now time.Time) {
	p.SetCell(row, col, &pool.Occupancy{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
	p.UpdatedAt = now
	u.Tokens -= p.TokensPerSquare
	u.TokensSpent += p.TokensPerSquare
	u.UpdatedAt = now
}

func readPoolAndUser(ctx context.Context, txn Txn, poolID, userID string) (pool.Pool, user.User, error) {
	p, ok, err := txn.Pool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, user.User{}, fmt.Errorf("read pool: %w", err)
	}
	if !ok {
		return pool.Pool{}, user.User{}, fmt.Errorf("%w: pool %s", ErrNotFound, poolID)
	}
	u, ok, err := txn.User(ctx, userID)
	if err != nil {
		return pool.Pool{}, user.User{}, fmt.Errorf("read user: %w", err)
	}
	if !ok {
		return pool.Pool{}, user.User{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return p, u, nil
}

func requireAdmin(ctx context.Context, txn Txn, adminID string) error {
	actor, ok, err := txn.User(ctx, adminID)
	if err != nil {
		return fmt.Errorf("read admin: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, adminID)
	}
	if !actor.IsAdmin {
		return fmt.Errorf("%w: user %s is not an admin", ErrUnauthorized, adminID)
	}
	return nil
}

func formatCells(cells []pool.CellRef) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		parts = append(parts, fmt.Sprintf("(%d,%d)", c.Row, c.Col))
	}
	return strings.Join(parts, ", ")
}
