package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func TestCreatePool_AdminOnly(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin(), testUser(aliceID, "Alice", "Nguyen", 0))

	_, err := r.pools.Create(context.Background(), usecase.CreatePoolInput{
		Name:            "Office Pool",
		TokensPerSquare: 2,
		AdminID:         aliceID,
	})
	if !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}

	created, err := r.pools.Create(context.Background(), usecase.CreatePoolInput{
		Name:            "Office Pool",
		TokensPerSquare: 2,
		AdminID:         adminID,
	})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected a generated pool id")
	}
	if created.FilledCount() != 0 || created.IsLocked {
		t.Fatalf("new pool must be empty and open: %+v", created)
	}
	if created.Prize() != 2*pool.GridSize/5 {
		t.Fatalf("unexpected prize: %d", created.Prize())
	}
}

func TestCreatePool_Validation(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())

	t.Run("empty name", func(t *testing.T) {
		_, err := r.pools.Create(context.Background(), usecase.CreatePoolInput{
			Name: "  ", TokensPerSquare: 1, AdminID: adminID,
		})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("zero tokens per square", func(t *testing.T) {
		_, err := r.pools.Create(context.Background(), usecase.CreatePoolInput{
			Name: "Pool", TokensPerSquare: 0, AdminID: adminID,
		})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestDeletePool_NoRefunds(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin(), testUser(aliceID, "Alice", "Nguyen", 10))
	r.store.Seed([]pool.Pool{emptyPool("pool-1", 4)}, nil)

	if _, err := r.reservations.ClaimSquare(context.Background(), "pool-1", aliceID, 0, 0); err != nil {
		t.Fatalf("claim square: %v", err)
	}

	if err := r.pools.Delete(context.Background(), "pool-1", adminID); err != nil {
		t.Fatalf("delete pool: %v", err)
	}

	if _, err := r.pools.Get(context.Background(), "pool-1"); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Spent tokens stay spent.
	u, _, err := r.store.GetUser(context.Background(), aliceID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Tokens != 6 || u.TokensSpent != 4 {
		t.Fatalf("delete must not refund: tokens=%d spent=%d", u.Tokens, u.TokensSpent)
	}
}

func TestSetStartTime_OpenPoolsOnly(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	r.store.Seed([]pool.Pool{
		emptyPool("pool-1", 1),
		lockedPool("pool-2", 1, testTopNumbers, testSideNumbers),
	}, nil)

	deadline := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	updated, err := r.pools.SetStartTime(context.Background(), "pool-1", adminID, &deadline)
	if err != nil {
		t.Fatalf("set start time: %v", err)
	}
	if updated.StartTime == nil || !updated.StartTime.Equal(deadline) {
		t.Fatalf("unexpected start time: %v", updated.StartTime)
	}

	cleared, err := r.pools.SetStartTime(context.Background(), "pool-1", adminID, nil)
	if err != nil {
		t.Fatalf("clear start time: %v", err)
	}
	if cleared.StartTime != nil {
		t.Fatalf("expected start time cleared, got %v", cleared.StartTime)
	}

	if _, err := r.pools.SetStartTime(context.Background(), "pool-2", adminID, &deadline); !errors.Is(err, usecase.ErrPoolLocked) {
		t.Fatalf("expected ErrPoolLocked for a locked pool, got %v", err)
	}
}

func TestListPools_OrderedByCreation(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())

	older := emptyPool("pool-old", 1)
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	newer := emptyPool("pool-new", 1)
	r.store.Seed([]pool.Pool{newer, older}, nil)

	pools, err := r.pools.List(context.Background())
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(pools))
	}
	if pools[0].ID != "pool-old" || pools[1].ID != "pool-new" {
		t.Fatalf("unexpected order: %s, %s", pools[0].ID, pools[1].ID)
	}
}
