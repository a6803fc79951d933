package postgres

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
)

type poolTableModel struct {
	ID              string     `db:"id"`
	Name            string     `db:"name"`
	TokensPerSquare int        `db:"tokens_per_square"`
	Grid            []byte     `db:"grid"`
	TopNumbers      []byte     `db:"top_numbers"`
	SideNumbers     []byte     `db:"side_numbers"`
	IsLocked        bool       `db:"is_locked"`
	StartTime       *time.Time `db:"start_time"`
	Scores          []byte     `db:"scores"`
	WinningSquares  []byte     `db:"winning_squares"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

type userTableModel struct {
	ID          string    `db:"id"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	Email       string    `db:"email"`
	IsAdmin     bool      `db:"is_admin"`
	Tokens      int       `db:"tokens"`
	TokensSpent int       `db:"tokens_spent"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func poolToRow(p pool.Pool) (poolTableModel, error) {
	grid, err := sonic.Marshal(p.Grid)
	if err != nil {
		return poolTableModel{}, fmt.Errorf("marshal grid: %w", err)
	}
	top, err := sonic.Marshal(p.TopNumbers)
	if err != nil {
		return poolTableModel{}, fmt.Errorf("marshal top numbers: %w", err)
	}
	side, err := sonic.Marshal(p.SideNumbers)
	if err != nil {
		return poolTableModel{}, fmt.Errorf("marshal side numbers: %w", err)
	}
	scores, err := sonic.Marshal(p.Scores)
	if err != nil {
		return poolTableModel{}, fmt.Errorf("marshal scores: %w", err)
	}
	winners, err := sonic.Marshal(p.WinningSquares)
	if err != nil {
		return poolTableModel{}, fmt.Errorf("marshal winning squares: %w", err)
	}
	return poolTableModel{
		ID:              p.ID,
		Name:            p.Name,
		TokensPerSquare: p.TokensPerSquare,
		Grid:            grid,
		TopNumbers:      top,
		SideNumbers:     side,
		IsLocked:        p.IsLocked,
		StartTime:       p.StartTime,
		Scores:          scores,
		WinningSquares:  winners,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

func poolFromRow(row poolTableModel) (pool.Pool, error) {
	p := pool.Pool{
		ID:              row.ID,
		Name:            row.Name,
		TokensPerSquare: row.TokensPerSquare,
		IsLocked:        row.IsLocked,
		StartTime:       row.StartTime,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if err := sonic.Unmarshal(row.Grid, &p.Grid); err != nil {
		return pool.Pool{}, fmt.Errorf("unmarshal grid: %w", err)
	}
	if len(p.Grid) != pool.GridSize {
		return pool.Pool{}, fmt.Errorf("pool %s grid has %d cells", row.ID, len(p.Grid))
	}
	if err := sonic.Unmarshal(row.TopNumbers, &p.TopNumbers); err != nil {
		return pool.Pool{}, fmt.Errorf("unmarshal top numbers: %w", err)
	}
	if err := sonic.Unmarshal(row.SideNumbers, &p.SideNumbers); err != nil {
		return pool.Pool{}, fmt.Errorf("unmarshal side numbers: %w", err)
	}
	if err := sonic.Unmarshal(row.Scores, &p.Scores); err != nil {
		return pool.Pool{}, fmt.Errorf("unmarshal scores: %w", err)
	}
	if err := sonic.Unmarshal(row.WinningSquares, &p.WinningSquares); err != nil {
		return pool.Pool{}, fmt.Errorf("unmarshal winning squares: %w", err)
	}
	return p, nil
}

func userToRow(u user.User) userTableModel {
	return userTableModel{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		IsAdmin:     u.IsAdmin,
		Tokens:      u.Tokens,
		TokensSpent: u.TokensSpent,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func userFromRow(row userTableModel) user.User {
	return user.User{
		ID:          row.ID,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		Email:       row.Email,
		IsAdmin:     row.IsAdmin,
		Tokens:      row.Tokens,
		TokensSpent: row.TokensSpent,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
