package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

var (
	testTopNumbers  = []int{7, 3, 9, 0, 1, 5, 2, 8, 4, 6}
	testSideNumbers = []int{4, 0, 9, 1, 5, 2, 7, 3, 8, 6}
)

func TestRecordScore_ResolvesWinnerByDigitMatch(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	p := lockedPool("pool-1", 1, testTopNumbers, testSideNumbers)
	// Home 23 -> digit 3 -> col 1; Away 14 -> digit 4 -> row 0.
	p.SetCell(0, 1, &pool.Occupancy{UserID: aliceID, FirstName: "Alice", LastName: "Nguyen"})
	r.store.Seed([]pool.Pool{p}, nil)

	result, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
		PoolID:  "pool-1",
		Quarter: pool.QuarterQ1,
		Home:    23,
		Away:    14,
		Confirm: true,
		AdminID: adminID,
	})
	if err != nil {
		t.Fatalf("record score: %v", err)
	}
	if !result.Resolved {
		t.Fatalf("expected a resolved winner on a full grid")
	}
	if result.Row != 0 || result.Col != 1 {
		t.Fatalf("unexpected winning cell: (%d, %d)", result.Row, result.Col)
	}
	if result.Winner != "Alice N." {
		t.Fatalf("unexpected winner name: %q", result.Winner)
	}

	got, _, err := r.store.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	entry, ok := got.Scores[pool.QuarterQ1]
	if !ok || entry.Home != 23 || entry.Away != 14 || !entry.Confirmed {
		t.Fatalf("unexpected stored score: %+v", entry)
	}
	record, ok := got.WinningSquares[pool.QuarterQ1]
	if !ok || record.Winner != "Alice N." || record.Row != 0 || record.Col != 1 {
		t.Fatalf("unexpected winner record: %+v", record)
	}
}

func TestRecordScore_UnoccupiedCellLeavesNoWinner(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	p := lockedPool("pool-1", 1, testTopNumbers, testSideNumbers)
	p.SetCell(0, 1, nil)
	r.store.Seed([]pool.Pool{p}, nil)

	result, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
		PoolID:  "pool-1",
		Quarter: pool.QuarterQ2,
		Home:    3,
		Away:    4,
		Confirm: true,
		AdminID: adminID,
	})
	if err != nil {
		t.Fatalf("record score: %v", err)
	}
	if result.Resolved {
		t.Fatalf("expected no winner for an empty cell, got %+v", result)
	}

	got, _, err := r.store.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if _, ok := got.Scores[pool.QuarterQ2]; !ok {
		t.Fatalf("score must be stored even without a winner")
	}
	if _, ok := got.WinningSquares[pool.QuarterQ2]; ok {
		t.Fatalf("no winner record expected for an empty cell")
	}
}

func TestRecordScore_RequiresLockedPool(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	r.store.Seed([]pool.Pool{emptyPool("pool-1", 1)}, nil)

	_, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
		PoolID:  "pool-1",
		Quarter: pool.QuarterQ1,
		Home:    7,
		Away:    0,
		AdminID: adminID,
	})
	if !errors.Is(err, usecase.ErrPoolNotFull) {
		t.Fatalf("expected ErrPoolNotFull for an open pool, got %v", err)
	}
}

func TestRecordScore_Validation(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin(), testUser(aliceID, "Alice", "Nguyen", 0))
	r.store.Seed([]pool.Pool{lockedPool("pool-1", 1, testTopNumbers, testSideNumbers)}, nil)

	t.Run("unknown quarter", func(t *testing.T) {
		_, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
			PoolID: "pool-1", Quarter: "q5", AdminID: adminID,
		})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("negative scores", func(t *testing.T) {
		_, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
			PoolID: "pool-1", Quarter: pool.QuarterQ1, Home: -1, AdminID: adminID,
		})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("non-admin actor", func(t *testing.T) {
		_, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
			PoolID: "pool-1", Quarter: pool.QuarterQ1, Home: 7, Away: 0, AdminID: aliceID,
		})
		if !errors.Is(err, usecase.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestEditScore_ClearsConfirmedOnly(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	r.store.Seed([]pool.Pool{lockedPool("pool-1", 1, testTopNumbers, testSideNumbers)}, nil)

	if _, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
		PoolID: "pool-1", Quarter: pool.QuarterQ3, Home: 10, Away: 20, Confirm: true, AdminID: adminID,
	}); err != nil {
		t.Fatalf("record score: %v", err)
	}

	if err := r.settlements.EditScore(context.Background(), "pool-1", adminID, pool.QuarterQ3); err != nil {
		t.Fatalf("edit score: %v", err)
	}

	got, _, err := r.store.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	entry := got.Scores[pool.QuarterQ3]
	if entry.Confirmed {
		t.Fatalf("expected confirmed flag cleared")
	}
	if entry.Home != 10 || entry.Away != 20 {
		t.Fatalf("scores must survive a reopen: %+v", entry)
	}
	if _, ok := got.WinningSquares[pool.QuarterQ3]; !ok {
		t.Fatalf("winner record must survive a reopen")
	}

	if err := r.settlements.EditScore(context.Background(), "pool-1", adminID, pool.QuarterQ4); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a quarter with no score, got %v", err)
	}
}

func TestCompleted_AllQuartersConfirmed(t *testing.T) {
	r := newRig(t)
	seedUsers(r, testAdmin())
	r.store.Seed([]pool.Pool{lockedPool("pool-1", 1, testTopNumbers, testSideNumbers)}, nil)

	for _, q := range pool.Quarters() {
		p, _, err := r.store.GetPool(context.Background(), "pool-1")
		if err != nil {
			t.Fatalf("get pool: %v", err)
		}
		if r.settlements.Completed(p) {
			t.Fatalf("pool must not be complete before %s is confirmed", q)
		}
		if _, err := r.settlements.RecordScore(context.Background(), usecase.RecordScoreInput{
			PoolID: "pool-1", Quarter: q, Home: 7, Away: 14, Confirm: true, AdminID: adminID,
		}); err != nil {
			t.Fatalf("record %s: %v", q, err)
		}
	}

	p, _, err := r.store.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if !r.settlements.Completed(p) {
		t.Fatalf("expected pool complete with all five quarters confirmed")
	}
}
