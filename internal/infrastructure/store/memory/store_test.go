package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func seedOnePool(s *Store, id string) {
	s.Seed([]pool.Pool{pool.New(id, "Pool "+id, 1, nil, time.Now().UTC())}, nil)
}

func TestRunTransaction_CommitAppliesWrites(t *testing.T) {
	s := NewStore()
	seedOnePool(s, "pool-1")

	err := s.RunTransaction(context.Background(), func(ctx context.Context, txn usecase.Txn) error {
		p, ok, err := txn.Pool(ctx, "pool-1")
		if err != nil || !ok {
			t.Fatalf("read pool: ok=%t err=%v", ok, err)
		}
		p.SetCell(1, 1, &pool.Occupancy{UserID: "u1"})
		txn.PutPool(p)
		txn.PutUser(user.User{ID: "u1", FirstName: "New", Tokens: 3})
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}

	p, ok, err := s.GetPool(context.Background(), "pool-1")
	if err != nil || !ok {
		t.Fatalf("get pool: ok=%t err=%v", ok, err)
	}
	if p.At(1, 1) == nil {
		t.Fatalf("committed write missing")
	}
	u, ok, err := s.GetUser(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("get user: ok=%t err=%v", ok, err)
	}
	if u.Tokens != 3 {
		t.Fatalf("unexpected user state: %+v", u)
	}
}

func TestRunTransaction_ErrorDiscardsWrites(t *testing.T) {
	s := NewStore()
	seedOnePool(s, "pool-1")
	boom := errors.New("boom")

	err := s.RunTransaction(context.Background(), func(ctx context.Context, txn usecase.Txn) error {
		p, _, err := txn.Pool(ctx, "pool-1")
		if err != nil {
			return err
		}
		p.SetCell(0, 0, &pool.Occupancy{UserID: "u1"})
		txn.PutPool(p)
		txn.PutUser(user.User{ID: "u1"})
		txn.DeletePool("pool-1")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	p, ok, err := s.GetPool(context.Background(), "pool-1")
	if err != nil || !ok {
		t.Fatalf("aborted delete must keep the pool: ok=%t err=%v", ok, err)
	}
	if p.At(0, 0) != nil {
		t.Fatalf("aborted write leaked into the store")
	}
	if _, ok, _ := s.GetUser(context.Background(), "u1"); ok {
		t.Fatalf("aborted user write leaked into the store")
	}
}

func TestRunTransaction_ReadsOwnWrites(t *testing.T) {
	s := NewStore()
	seedOnePool(s, "pool-1")

	err := s.RunTransaction(context.Background(), func(ctx context.Context, txn usecase.Txn) error {
		p, _, err := txn.Pool(ctx, "pool-1")
		if err != nil {
			return err
		}
		p.SetCell(2, 2, &pool.Occupancy{UserID: "u1"})
		txn.PutPool(p)

		again, ok, err := txn.Pool(ctx, "pool-1")
		if err != nil || !ok {
			t.Fatalf("reread pool: ok=%t err=%v", ok, err)
		}
		if again.At(2, 2) == nil {
			t.Fatalf("buffered write not visible to a later read")
		}

		txn.DeletePool("pool-1")
		if _, ok, _ := txn.Pool(ctx, "pool-1"); ok {
			t.Fatalf("buffered delete not visible to a later read")
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected abort error")
	}
}

func TestRunTransaction_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunTransaction(ctx, func(context.Context, usecase.Txn) error {
		t.Fatalf("fn must not run on a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGetPool_ReturnsClones(t *testing.T) {
	s := NewStore()
	seedOnePool(s, "pool-1")

	p1, _, err := s.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	p1.SetCell(5, 5, &pool.Occupancy{UserID: "mutator"})

	p2, _, err := s.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if p2.At(5, 5) != nil {
		t.Fatalf("caller mutation reached store-held state")
	}
}

func TestListPools_SortedByCreation(t *testing.T) {
	s := NewStore()
	older := pool.New("pool-old", "Old", 1, nil, time.Now().Add(-time.Hour).UTC())
	newer := pool.New("pool-new", "New", 1, nil, time.Now().UTC())
	s.Seed([]pool.Pool{newer, older}, nil)

	pools, err := s.ListPools(context.Background())
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if len(pools) != 2 || pools[0].ID != "pool-old" {
		t.Fatalf("unexpected order: %+v", pools)
	}
}
