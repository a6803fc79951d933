package random

import (
	crand "crypto/rand"
	"fmt"
	mrand "math/rand/v2"
	"sync"
)

// Generator produces the uniform draws the game depends on: axis-digit
// permutations and without-replacement cell selection. Both use a
// Fisher-Yates shuffle so every outcome is equally likely. One generator is
// shared across services and transactions may run concurrently, so draws
// are serialized; mrand.Rand is not safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// New returns a generator seeded from the OS entropy source.
func New() (*Generator, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return &Generator{rng: mrand.New(mrand.NewChaCha8(seed))}, nil
}

// NewSeeded returns a deterministic generator for tests.
func NewSeeded(seed [32]byte) *Generator {
	return &Generator{rng: mrand.New(mrand.NewChaCha8(seed))}
}

// Perm returns a uniform permutation of [0, n).
func (g *Generator) Perm(n int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Perm(n)
}

// Sample returns k distinct indices drawn uniformly without replacement
// from [0, n). Every subset of size k is equally likely. Panics if k > n;
// callers validate supply before drawing.
func (g *Generator) Sample(n, k int) []int {
	if k > n {
		panic(fmt.Sprintf("random: sample %d from %d", k, n))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates: only the first k positions need settling.
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
