package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/platform/metrics"
	"github.com/poolside-labs/squares-pool/internal/platform/random"
)

// LockService performs the one-way open-to-locked transition, revealing the
// axis digits. Once locked a pool never unlocks.
type LockService struct {
	store    EntityStore
	notifier Notifier
	trail    auditTrail
	rng      *random.Generator
	logger   *logging.Logger
	now      func() time.Time
}

func NewLockService(
	store EntityStore,
	notifier Notifier,
	recorder audit.Recorder,
	idGen idgen.Generator,
	rng *random.Generator,
	logger *logging.Logger,
) *LockService {
	if notifier == nil {
		notifier = NewNopNotifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LockService{
		store:    store,
		notifier: notifier,
		trail:    newAuditTrail(recorder, idGen, logger, time.Now),
		rng:      rng,
		logger:   logger,
		now:      time.Now,
	}
}

// Lock requires all 100 cells to be claimed, then sets two independent
// uniform permutations of 0-9 and IsLocked atomically. A pool that is not
// full is left untouched and the call returns ErrPoolNotFull. An empty
// actorID means the scheduler is locking at start time; otherwise the
// actor must be an admin.
func (s *LockService) Lock(ctx context.Context, poolID, actorID string) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LockService.Lock")
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	actorID = strings.TrimSpace(actorID)
	if poolID == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}

	var committed pool.Pool
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if actorID != "" {
			if err := requireAdmin(ctx, txn, actorID); err != nil {
				return err
			}
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
		if !p.IsFull() {
			return fmt.Errorf("%w: %d of %d squares filled", ErrPoolNotFull, p.FilledCount(), pool.GridSize)
		}

		p.TopNumbers = s.rng.Perm(pool.GridDim)
		p.SideNumbers = s.rng.Perm(pool.GridDim)
		p.IsLocked = true
		p.UpdatedAt = s.now().UTC()
		txn.PutPool(p)
		committed = p
		return nil
	})
	if err != nil {
		return pool.Pool{}, err
	}

	metrics.PoolsLocked.Inc()
	s.notifier.Publish(ctx, committed)
	s.trail.record(ctx, audit.EventPoolLocked, actorID, poolID,
		fmt.Sprintf("Locked and started %s. Numbers revealed", committed.Name))
	s.logger.InfoContext(ctx, "pool locked", "pool_id", poolID)

	return committed, nil
}

// AutoLockScheduler invokes Lock once per pool when wall-clock time passes
// its start time. A one-shot flag keeps repeated ticks from re-invoking the
// lock; a pool that is not full at start time gets a deferred-lock notice
// instead and is left for an admin to lock manually.
type AutoLockScheduler struct {
	store    EntityStore
	locker   *LockService
	trail    auditTrail
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	attempted map[string]bool
}

func NewAutoLockScheduler(
	store EntityStore,
	locker *LockService,
	recorder audit.Recorder,
	idGen idgen.Generator,
	logger *logging.Logger,
	interval time.Duration,
) *AutoLockScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &AutoLockScheduler{
		store:     store,
		locker:    locker,
		trail:     newAuditTrail(recorder, idGen, logger, time.Now),
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		attempted: make(map[string]bool),
	}
}

// Run ticks until ctx is cancelled.
func (s *AutoLockScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick scans for pools whose start time has passed and attempts each at
// most once across the scheduler's lifetime.
func (s *AutoLockScheduler) Tick(ctx context.Context) {
	pools, err := s.store.ListPools(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "auto-lock scan failed", "error", err)
		return
	}

	now := s.now()
	for _, p := range pools {
		if p.IsLocked || p.StartTime == nil || p.StartTime.After(now) {
			continue
		}
		if !s.markAttempted(p.ID) {
			continue
		}

		_, err := s.locker.Lock(ctx, p.ID, "")
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "pool auto-locked at start time", "pool_id", p.ID)
		case errors.Is(err, ErrPoolNotFull):
			s.trail.record(ctx, audit.EventLockDeferred, "", p.ID,
				fmt.Sprintf("%s reached start time with %d of %d squares filled; lock deferred to admin",
					p.Name, p.FilledCount(), pool.GridSize))
			s.logger.WarnContext(ctx, "auto-lock deferred, pool not full",
				"pool_id", p.ID, "filled", p.FilledCount())
		case errors.Is(err, ErrPoolLocked):
			// Locked manually between the scan and the attempt.
		default:
			s.logger.ErrorContext(ctx, "auto-lock failed", "pool_id", p.ID, "error", err)
		}
	}
}

// markAttempted reports whether this is the first attempt for poolID.
func (s *AutoLockScheduler) markAttempted(poolID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempted[poolID] {
		return false
	}
	s.attempted[poolID] = true
	return true
}
