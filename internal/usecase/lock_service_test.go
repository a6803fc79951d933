package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func isPermutation(digits []int) bool {
	if len(digits) != pool.GridDim {
		return false
	}
	var seen [pool.GridDim]bool
	for _, d := range digits {
		if d < 0 || d >= pool.GridDim || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

func TestLock_RevealsPermutations(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	r.store.Seed([]pool.Pool{fullPool("pool-1", 1, bobID)}, nil)

	locked, err := r.locks.Lock(context.Background(), "pool-1", adminID)
	if err != nil {
		t.Fatalf("lock pool: %v", err)
	}
	if !locked.IsLocked {
		t.Fatalf("expected pool locked")
	}
	if !isPermutation(locked.TopNumbers) {
		t.Fatalf("top numbers not a permutation: %v", locked.TopNumbers)
	}
	if !isPermutation(locked.SideNumbers) {
		t.Fatalf("side numbers not a permutation: %v", locked.SideNumbers)
	}

	// One-way: a second lock fails and leaves the digits unchanged.
	if _, err := r.locks.Lock(context.Background(), "pool-1", adminID); !errors.Is(err, usecase.ErrPoolLocked) {
		t.Fatalf("expected ErrPoolLocked on relock, got %v", err)
	}
	got, _, err := r.store.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	for i := range got.TopNumbers {
		if got.TopNumbers[i] != locked.TopNumbers[i] || got.SideNumbers[i] != locked.SideNumbers[i] {
			t.Fatalf("digits changed after failed relock")
		}
	}
}

func TestLock_RejectsPartialGrid(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	p := fullPool("pool-1", 1, bobID)
	p.SetCell(9, 9, nil)
	r.store.Seed([]pool.Pool{p}, nil)

	if _, err := r.locks.Lock(context.Background(), "pool-1", adminID); !errors.Is(err, usecase.ErrPoolNotFull) {
		t.Fatalf("expected ErrPoolNotFull, got %v", err)
	}

	got, _, err := r.store.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if got.IsLocked || got.TopNumbers != nil || got.SideNumbers != nil {
		t.Fatalf("failed lock must leave the pool untouched: %+v", got)
	}
}

func TestLock_RequiresAdminUnlessScheduler(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin(), testUser(aliceID, "Alice", "Nguyen", 0))
	r.store.Seed([]pool.Pool{fullPool("pool-1", 1, bobID)}, nil)

	if _, err := r.locks.Lock(context.Background(), "pool-1", aliceID); !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}

	// Empty actor is the scheduler path.
	if _, err := r.locks.Lock(context.Background(), "pool-1", ""); err != nil {
		t.Fatalf("scheduler lock: %v", err)
	}
}

func TestAutoLockScheduler_OneShotPerPool(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	past := time.Now().Add(-time.Minute).UTC()

	full := fullPool("pool-full", 1, bobID)
	full.StartTime = &past
	partial := emptyPool("pool-partial", 1)
	partial.StartTime = &past
	future := fullPool("pool-future", 1, bobID)
	soon := time.Now().Add(time.Hour).UTC()
	future.StartTime = &soon
	r.store.Seed([]pool.Pool{full, partial, future}, nil)

	scheduler := usecase.NewAutoLockScheduler(r.store, r.locks, r.audit, idgen.NewRandomGenerator(), logging.NewNop(), time.Second)
	scheduler.Tick(context.Background())

	gotFull, _, err := r.store.GetPool(context.Background(), "pool-full")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if !gotFull.IsLocked {
		t.Fatalf("expected full pool auto-locked at start time")
	}

	gotPartial, _, err := r.store.GetPool(context.Background(), "pool-partial")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if gotPartial.IsLocked {
		t.Fatalf("partial pool must not auto-lock")
	}

	gotFuture, _, err := r.store.GetPool(context.Background(), "pool-future")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if gotFuture.IsLocked {
		t.Fatalf("future pool must not lock before start time")
	}

	// The deferred notice lands once; later ticks skip the pool entirely.
	countDeferred := func() int {
		entries, err := r.audit.ListRecent(context.Background(), 50)
		if err != nil {
			t.Fatalf("list audit: %v", err)
		}
		n := 0
		for _, e := range entries {
			if e.Kind == audit.EventLockDeferred {
				n++
			}
		}
		return n
	}
	if got := countDeferred(); got != 1 {
		t.Fatalf("expected one deferred-lock notice, got %d", got)
	}
	scheduler.Tick(context.Background())
	scheduler.Tick(context.Background())
	if got := countDeferred(); got != 1 {
		t.Fatalf("repeated ticks must not re-attempt, notices=%d", got)
	}
}
