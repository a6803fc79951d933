package user

import (
	"fmt"
	"time"
)

// User is a pool participant. Tokens is the spendable balance, TokensSpent
// the cumulative debit across all reservations (informational running total).
type User struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	IsAdmin     bool
	Tokens      int
	TokensSpent int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayName renders the snapshot format used on the grid: "First L.".
func DisplayName(firstName, lastName string) string {
	if firstName == "" || lastName == "" {
		return "Unknown"
	}
	return fmt.Sprintf("%s %s.", firstName, lastName[:1])
}

// ValidateBasic checks structural invariants for a stored user.
func (u User) ValidateBasic() error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if u.Tokens < 0 {
		return fmt.Errorf("token balance cannot be negative")
	}
	return nil
}
