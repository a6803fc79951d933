package usecase

import (
	"context"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
)

// Txn is the view of the entity store inside one atomic transaction. Reads
// return the freshest committed state; writes are buffered and land only if
// the transaction function returns nil and the commit succeeds.
type Txn interface {
	Pool(ctx context.Context, poolID string) (pool.Pool, bool, error)
	User(ctx context.Context, userID string) (user.User, bool, error)
	PutPool(p pool.Pool)
	PutUser(u user.User)
	DeletePool(poolID string)
}

// EntityStore is the durable state for pools and users. RunTransaction
// executes fn serializably: every precondition fn checks holds at commit
// time, and a returned error aborts with no partial effect. A commit the
// substrate cannot confirm surfaces as an error even though the write may
// have landed; callers treat that as user-retryable.
type EntityStore interface {
	GetPool(ctx context.Context, poolID string) (pool.Pool, bool, error)
	GetUser(ctx context.Context, userID string) (user.User, bool, error)
	ListPools(ctx context.Context) ([]pool.Pool, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	RunTransaction(ctx context.Context, fn func(ctx context.Context, txn Txn) error) error
}

// Notifier pushes committed pool state to observers. Fire-and-forget: the
// acting caller already holds the transaction's return value, everyone else
// may lag slightly behind the commit.
type Notifier interface {
	Publish(ctx context.Context, p pool.Pool)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, pool.Pool) {}

func NewNopNotifier() Notifier {
	return nopNotifier{}
}
