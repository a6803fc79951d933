package memory

import (
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/user"
)

const SeedAdminID = "seed-admin"

// SeedUsers returns a small dev roster with one admin. The memory store
// starts empty in every other respect.
func SeedUsers() []user.User {
	now := time.Now().UTC()
	return []user.User{
		{ID: SeedAdminID, FirstName: "Pat", LastName: "Commissioner", Email: "pat@example.com", IsAdmin: true, CreatedAt: now, UpdatedAt: now},
		{ID: "seed-alice", FirstName: "Alice", LastName: "Nguyen", Email: "alice@example.com", Tokens: 50, CreatedAt: now, UpdatedAt: now},
		{ID: "seed-bob", FirstName: "Bob", LastName: "Ortega", Email: "bob@example.com", Tokens: 50, CreatedAt: now, UpdatedAt: now},
	}
}
