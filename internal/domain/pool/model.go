package pool

import (
	"fmt"
	"time"
)

const (
	// GridDim is the number of rows and columns on the board.
	GridDim = 10
	// GridSize is the total number of claimable cells.
	GridSize = GridDim * GridDim
)

// Quarter identifies one of the five scoring checkpoints.
type Quarter string

const (
	QuarterQ1    Quarter = "q1"
	QuarterQ2    Quarter = "q2"
	QuarterQ3    Quarter = "q3"
	QuarterQ4    Quarter = "q4"
	QuarterFinal Quarter = "final"
)

// Quarters returns the scoring checkpoints in game order.
func Quarters() []Quarter {
	return []Quarter{QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4, QuarterFinal}
}

// IsValid reports whether q is one of the five known quarter keys.
func (q Quarter) IsValid() bool {
	switch q {
	case QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4, QuarterFinal:
		return true
	}
	return false
}

// Occupancy is the claim record of one cell. FirstName/LastName are a
// display snapshot taken at claim time; later profile edits do not flow back.
type Occupancy struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ScoreEntry holds one quarter's scores. Home maps over the top axis,
// Away over the side axis.
type ScoreEntry struct {
	Home      int  `json:"home"`
	Away      int  `json:"away"`
	Confirmed bool `json:"confirmed"`
}

// WinnerRecord is the resolved winning cell for a confirmed quarter.
type WinnerRecord struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Winner string `json:"winner"`
}

// Pool is one instance of the squares game. The grid is stored flat,
// index = row*GridDim + col; a nil slot is unclaimed.
type Pool struct {
	ID              string
	Name            string
	TokensPerSquare int
	Grid            []*Occupancy
	TopNumbers      []int
	SideNumbers     []int
	IsLocked        bool
	StartTime       *time.Time
	Scores          map[Quarter]ScoreEntry
	WinningSquares  map[Quarter]WinnerRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CellRef addresses one grid position.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// New returns an empty pool: all cells unclaimed, axes unset, unlocked.
func New(id, name string, tokensPerSquare int, startTime *time.Time, now time.Time) Pool {
	return Pool{
		ID:              id,
		Name:            name,
		TokensPerSquare: tokensPerSquare,
		Grid:            make([]*Occupancy, GridSize),
		StartTime:       startTime,
		Scores:          make(map[Quarter]ScoreEntry),
		WinningSquares:  make(map[Quarter]WinnerRecord),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Index converts (row, col) to the flat grid index.
func Index(row, col int) int {
	return row*GridDim + col
}

// InBounds reports whether (row, col) addresses a real cell.
func InBounds(row, col int) bool {
	return row >= 0 && row < GridDim && col >= 0 && col < GridDim
}

// At returns the occupancy of (row, col), nil when the cell is empty.
func (p Pool) At(row, col int) *Occupancy {
	return p.Grid[Index(row, col)]
}

// SetCell writes (or clears, with nil) the occupancy of (row, col).
func (p *Pool) SetCell(row, col int, occ *Occupancy) {
	p.Grid[Index(row, col)] = occ
}

// FilledCount returns the number of claimed cells.
func (p Pool) FilledCount() int {
	n := 0
	for _, cell := range p.Grid {
		if cell != nil {
			n++
		}
	}
	return n
}

// IsFull reports whether every cell is claimed.
func (p Pool) IsFull() bool {
	return p.FilledCount() == GridSize
}

// EmptyCells enumerates unclaimed cells in grid order.
func (p Pool) EmptyCells() []CellRef {
	out := make([]CellRef, 0, GridSize-p.FilledCount())
	for i, cell := range p.Grid {
		if cell == nil {
			out = append(out, CellRef{Row: i / GridDim, Col: i % GridDim})
		}
	}
	return out
}

// Completed reports whether the pool is locked and all five quarters have
// confirmed scores.
func (p Pool) Completed() bool {
	if !p.IsLocked || p.Scores == nil {
		return false
	}
	for _, q := range Quarters() {
		entry, ok := p.Scores[q]
		if !ok || !entry.Confirmed {
			return false
		}
	}
	return true
}

// Prize is the informational per-quarter prize figure. Nothing pays it out.
func (p Pool) Prize() int {
	return p.TokensPerSquare * GridSize / 5
}

// Clone deep-copies the pool so callers can mutate without aliasing
// store-held state.
func (p Pool) Clone() Pool {
	out := p
	out.Grid = make([]*Occupancy, len(p.Grid))
	for i, cell := range p.Grid {
		if cell != nil {
			occ := *cell
			out.Grid[i] = &occ
		}
	}
	if p.TopNumbers != nil {
		out.TopNumbers = append([]int(nil), p.TopNumbers...)
	}
	if p.SideNumbers != nil {
		out.SideNumbers = append([]int(nil), p.SideNumbers...)
	}
	if p.Scores != nil {
		out.Scores = make(map[Quarter]ScoreEntry, len(p.Scores))
		for k, v := range p.Scores {
			out.Scores[k] = v
		}
	}
	if p.WinningSquares != nil {
		out.WinningSquares = make(map[Quarter]WinnerRecord, len(p.WinningSquares))
		for k, v := range p.WinningSquares {
			out.WinningSquares[k] = v
		}
	}
	if p.StartTime != nil {
		t := *p.StartTime
		out.StartTime = &t
	}
	return out
}

// ValidateBasic checks structural invariants that must hold for any stored pool.
func (p Pool) ValidateBasic() error {
	if p.ID == "" {
		return fmt.Errorf("pool id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("pool name is required")
	}
	if p.TokensPerSquare <= 0 {
		return fmt.Errorf("tokens per square must be greater than zero")
	}
	if len(p.Grid) != GridSize {
		return fmt.Errorf("grid must have exactly %d cells, has %d", GridSize, len(p.Grid))
	}
	if p.IsLocked {
		if err := validatePermutation(p.TopNumbers); err != nil {
			return fmt.Errorf("top numbers: %w", err)
		}
		if err := validatePermutation(p.SideNumbers); err != nil {
			return fmt.Errorf("side numbers: %w", err)
		}
	}
	for q := range p.Scores {
		if !q.IsValid() {
			return fmt.Errorf("unknown quarter key %q", q)
		}
	}
	for q := range p.WinningSquares {
		if _, ok := p.Scores[q]; !ok {
			return fmt.Errorf("winning square for %s without a recorded score", q)
		}
	}
	return nil
}

func validatePermutation(digits []int) error {
	if len(digits) != GridDim {
		return fmt.Errorf("must have %d digits, has %d", GridDim, len(digits))
	}
	var seen [GridDim]bool
	for _, d := range digits {
		if d < 0 || d >= GridDim || seen[d] {
			return fmt.Errorf("not a permutation of 0-9: %v", digits)
		}
		seen[d] = true
	}
	return nil
}
