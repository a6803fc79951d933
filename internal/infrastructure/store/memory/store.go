package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

// Store is an in-process entity store. Transactions run one at a time under
// a single mutex, which makes every transaction trivially serializable.
// Entities are deep-cloned on the way in and out so callers never share
// grid backing arrays with the committed state.
type Store struct {
	mu    sync.RWMutex
	pools map[string]pool.Pool
	users map[string]user.User
}

func NewStore() *Store {
	return &Store{
		pools: make(map[string]pool.Pool),
		users: make(map[string]user.User),
	}
}

// Seed installs entities directly, bypassing the transaction path. Intended
// for startup fixtures and tests.
func (s *Store) Seed(pools []pool.Pool, users []user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pools {
		s.pools[p.ID] = p.Clone()
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
}

func (s *Store) GetPool(_ context.Context, poolID string) (pool.Pool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[poolID]
	if !ok {
		return pool.Pool{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (user.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return user.User{}, false, nil
	}
	return u, true, nil
}

func (s *Store) ListPools(_ context.Context) ([]pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]pool.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RunTransaction executes fn with exclusive access to the store. Writes are
// buffered in the transaction and applied only when fn returns nil, so a
// failed transaction leaves the committed state untouched.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, txn usecase.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn := &memoryTxn{store: s}
	if err := fn(ctx, txn); err != nil {
		return err
	}

	for id, p := range txn.poolWrites {
		s.pools[id] = p.Clone()
	}
	for id, u := range txn.userWrites {
		s.users[id] = u
	}
	for id := range txn.poolDeletes {
		delete(s.pools, id)
	}
	return nil
}

type memoryTxn struct {
	store       *Store
	poolWrites  map[string]pool.Pool
	userWrites  map[string]user.User
	poolDeletes map[string]struct{}
}

func (t *memoryTxn) Pool(_ context.Context, poolID string) (pool.Pool, bool, error) {
	if _, deleted := t.poolDeletes[poolID]; deleted {
		return pool.Pool{}, false, nil
	}
	if p, ok := t.poolWrites[poolID]; ok {
		return p.Clone(), true, nil
	}
	p, ok := t.store.pools[poolID]
	if !ok {
		return pool.Pool{}, false, nil
	}
	return p.Clone(), true, nil
}

func (t *memoryTxn) User(_ context.Context, userID string) (user.User, bool, error) {
	if u, ok := t.userWrites[userID]; ok {
		return u, true, nil
	}
	u, ok := t.store.users[userID]
	if !ok {
		return user.User{}, false, nil
	}
	return u, true, nil
}

func (t *memoryTxn) PutPool(p pool.Pool) {
	if t.poolWrites == nil {
		t.poolWrites = make(map[string]pool.Pool)
	}
	delete(t.poolDeletes, p.ID)
	t.poolWrites[p.ID] = p.Clone()
}

func (t *memoryTxn) PutUser(u user.User) {
	if t.userWrites == nil {
		t.userWrites = make(map[string]user.User)
	}
	t.userWrites[u.ID] = u
}

func (t *memoryTxn) DeletePool(poolID string) {
	if t.poolDeletes == nil {
		t.poolDeletes = make(map[string]struct{})
	}
	delete(t.poolWrites, poolID)
	t.poolDeletes[poolID] = struct{}{}
}
