package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
)

// PoolService owns pool lifecycle outside the claim and settlement paths:
// creation, deletion, start-time changes, and reads.
type PoolService struct {
	store    EntityStore
	notifier Notifier
	trail    auditTrail
	idGen    idgen.Generator
	logger   *logging.Logger
	now      func() time.Time
}

func NewPoolService(
	store EntityStore,
	notifier Notifier,
	recorder audit.Recorder,
	idGen idgen.Generator,
	logger *logging.Logger,
) *PoolService {
	if notifier == nil {
		notifier = NewNopNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PoolService{
		store:    store,
		notifier: notifier,
		trail:    newAuditTrail(recorder, idGen, logger, time.Now),
		idGen:    idGen,
		logger:   logger,
		now:      time.Now,
	}
}

type CreatePoolInput struct {
	Name            string
	TokensPerSquare int
	StartTime       *time.Time
	AdminID         string
}

// Create provisions an empty open pool. Admin only.
func (s *PoolService) Create(ctx context.Context, input CreatePoolInput) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Create")
	defer span.End()

	input.Name = strings.TrimSpace(input.Name)
	input.AdminID = strings.TrimSpace(input.AdminID)
	if input.Name == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool name is required", ErrInvalidInput)
	}
	if input.TokensPerSquare < 1 {
		return pool.Pool{}, fmt.Errorf("%w: tokens per square must be at least 1", ErrInvalidInput)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return pool.Pool{}, fmt.Errorf("generate pool id: %w", err)
	}

	var committed pool.Pool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if err := requireAdmin(ctx, txn, input.AdminID); err != nil {
			return err
		}
		p := pool.New(id, input.Name, input.TokensPerSquare, input.StartTime, s.now().UTC())
		if err := p.ValidateBasic(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		txn.PutPool(p)
		committed = p
		return nil
	})
	if err != nil {
		return pool.Pool{}, err
	}

	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventPoolCreated, input.AdminID, committed.ID,
		fmt.Sprintf("Created %s at %d token(s) per square", committed.Name, committed.TokensPerSquare))
	s.logger.InfoContext(ctx, "pool created",
		"pool_id", committed.ID, "name", committed.Name, "tokens_per_square", committed.TokensPerSquare)

	return committed, nil
}

// Delete removes a pool outright. Tokens already spent on its squares are
// not refunded. Admin only.
func (s *PoolService) Delete(ctx context.Context, poolID, adminID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Delete")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	adminID = strings.TrimSpace(adminID)
	if poolID == "" {
		return fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}

	var deleted pool.Pool
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
		txn.DeletePool(poolID)
		deleted = p
		return nil
	})
	if err != nil {
		return err
	}

	s.trail.record(ctx, audit.EventPoolDeleted, adminID, poolID,
		fmt.Sprintf("Deleted %s with %d claimed square(s)", deleted.Name, deleted.FilledCount()))
	s.logger.InfoContext(ctx, "pool deleted", "pool_id", poolID, "filled", deleted.FilledCount())

	return nil
}

// SetStartTime sets or clears the automatic lock deadline. Admin only;
// rejected once the pool is locked.
func (s *PoolService) SetStartTime(ctx context.Context, poolID, adminID string, startTime *time.Time) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.SetStartTime")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	adminID = strings.TrimSpace(adminID)
	if poolID == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
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
		if p.IsLocked {
			return fmt.Errorf("%w: pool %s", ErrPoolLocked, poolID)
		}
		p.StartTime = startTime
		p.UpdatedAt = s.now().UTC()
		txn.PutPool(p)
		committed = p
		return nil
	})
	if err != nil {
		return pool.Pool{}, err
	}

	detail := fmt.Sprintf("Cleared start time for %s", committed.Name)
	if startTime != nil {
		detail = fmt.Sprintf("Set start time for %s to %s", committed.Name, startTime.UTC().Format(time.RFC3339))
	}
	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventStartTimeChanged, adminID, poolID, detail)
	s.logger.InfoContext(ctx, "pool start time changed", "pool_id", poolID)

	return committed, nil
}

// Get returns a snapshot of one pool.
func (s *PoolService) Get(ctx context.Context, poolID string) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.Get")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}
	p, ok, err := s.store.GetPool(ctx, poolID)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("read pool: %w", err)
	}
	if !ok {
		return pool.Pool{}, fmt.Errorf("%w: pool %s", ErrNotFound, poolID)
	}
	return p, nil
}

// List returns snapshots of every pool.
func (s *PoolService) List(ctx context.Context) ([]pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolService.List")
	defer span.End()

	pools, err := s.store.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}
