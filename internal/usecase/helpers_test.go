package usecase_test

import (
	"testing"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/auditlog"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/store/memory"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/platform/random"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

const (
	adminID = "admin-1"
	aliceID = "alice-1"
	bobID   = "bob-1"
)

type rig struct {
	store        *memory.Store
	audit        *auditlog.MemoryLog
	pools        *usecase.PoolService
	users        *usecase.UserService
	reservations *usecase.ReservationService
	locks        *usecase.LockService
	settlements  *usecase.SettlementService
}

func newRig(t *testing.T) *rig {
	t.Helper()

	store := memory.NewStore()
	log := auditlog.NewMemoryLog(500)
	idGen := idgen.NewRandomGenerator()
	rng := random.NewSeeded([32]byte{7})
	logger := logging.NewNop()

	return &rig{
		store:        store,
		audit:        log,
		pools:        usecase.NewPoolService(store, nil, log, idGen, logger),
		users:        usecase.NewUserService(store, log, idGen, logger),
		reservations: usecase.NewReservationService(store, nil, log, idGen, rng, logger),
		locks:        usecase.NewLockService(store, nil, log, idGen, rng, logger),
		settlements:  usecase.NewSettlementService(store, nil, log, idGen, logger),
	}
}

func seedUsers(r *rig, users ...user.User) {
	r.store.Seed(nil, users)
}

func testAdmin() user.User {
	now := time.Now().UTC()
	return user.User{ID: adminID, FirstName: "Ada", LastName: "Min", IsAdmin: true, CreatedAt: now, UpdatedAt: now}
}

func testUser(id, first, last string, tokens int) user.User {
	now := time.Now().UTC()
	return user.User{ID: id, FirstName: first, LastName: last, Tokens: tokens, CreatedAt: now, UpdatedAt: now}
}

func emptyPool(id string, tokensPerSquare int) pool.Pool {
	return pool.New(id, "Test Pool "+id, tokensPerSquare, nil, time.Now().UTC())
}

// fullPool returns a pool with every cell claimed by ownerID.
func fullPool(id string, tokensPerSquare int, ownerID string) pool.Pool {
	p := emptyPool(id, tokensPerSquare)
	for row := 0; row < pool.GridDim; row++ {
		for col := 0; col < pool.GridDim; col++ {
			p.SetCell(row, col, &pool.Occupancy{UserID: ownerID, FirstName: "Owner", LastName: "One"})
		}
	}
	return p
}

// lockedPool returns a full pool with fixed axis digits for deterministic
// winner resolution.
func lockedPool(id string, tokensPerSquare int, top, side []int) pool.Pool {
	p := fullPool(id, tokensPerSquare, bobID)
	p.TopNumbers = append([]int(nil), top...)
	p.SideNumbers = append([]int(nil), side...)
	p.IsLocked = true
	return p
}
