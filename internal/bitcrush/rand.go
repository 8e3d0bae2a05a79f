package bitcrush

import "math/rand/v2"

// Rand is the random source used to pick intermediate sizes and qualities.
type Rand interface {
	// IntN returns a uniform value in [0, n). n is always > 0.
	IntN(n int) int
}

type globalRand struct{}

// IntN draws from the goroutine-safe global generator.
func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// DefaultRand returns the process-wide random source.
func DefaultRand() Rand {
	return globalRand{}
}

// between returns a uniform value in [lo, hi). hi must be > lo.
func between(rng Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo)
}
