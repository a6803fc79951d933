package auditlog

import (
	"context"
	"testing"
	"time"
)

func TestCachedLog_ServesRepeatReadsFromCache(t *testing.T) {
	inner := NewMemoryLog(10)
	log := NewCachedLog(inner, time.Minute)
	base := time.Now().UTC()

	if err := log.Record(context.Background(), entry("e0", "u1", "", base)); err != nil {
		t.Fatalf("record: %v", err)
	}

	first, err := log.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(first))
	}

	// Write to the inner log behind the cache's back; the cached result
	// must still be served until invalidated.
	if err := inner.Record(context.Background(), entry("e1", "u1", "", base.Add(time.Second))); err != nil {
		t.Fatalf("record: %v", err)
	}
	cached, err := log.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(cached) != 1 {
		t.Fatalf("expected cached read, got %d entries", len(cached))
	}
}

func TestCachedLog_RecordInvalidatesAffectedKeys(t *testing.T) {
	inner := NewMemoryLog(10)
	log := NewCachedLog(inner, time.Minute)
	base := time.Now().UTC()

	if err := log.Record(context.Background(), entry("e0", "u1", "", base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := log.ListRecent(context.Background(), 10); err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if _, err := log.ListForUser(context.Background(), "u1", 10); err != nil {
		t.Fatalf("list for user: %v", err)
	}

	if err := log.Record(context.Background(), entry("e1", "admin", "u1", base.Add(time.Second))); err != nil {
		t.Fatalf("record: %v", err)
	}

	recent, err := log.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "e1" {
		t.Fatalf("stale recent feed after write: %+v", recent)
	}

	forUser, err := log.ListForUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(forUser) != 2 {
		t.Fatalf("stale user feed after write: %+v", forUser)
	}
}
