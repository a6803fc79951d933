package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSquareTaken           = errors.New("square already taken")
	ErrPoolLocked            = errors.New("pool is locked")
	ErrPoolNotFull           = errors.New("pool is not full")
	ErrInsufficientTokens    = errors.New("insufficient tokens")
	ErrInsufficientSquares   = errors.New("insufficient squares")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// InsufficientSquaresError reports how many cells were actually free when a
// batch request lost the race for supply. Matches ErrInsufficientSquares
// under errors.Is.
type InsufficientSquaresError struct {
	Requested int
	Available int
}

func (e *InsufficientSquaresError) Error() string {
	return fmt.Sprintf("insufficient squares: requested %d, only %d available", e.Requested, e.Available)
}

func (e *InsufficientSquaresError) Is(target error) bool {
	return target == ErrInsufficientSquares
}
