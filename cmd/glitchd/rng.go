package main

import "math/rand/v2"

// Rand supplies the uniform randomness the engine consumes. Keeping it an
// interface lets tests drive the scheduler with scripted draws.
type Rand interface {
	// IntN returns a uniform int in [0, n). n must be > 0.
	IntN(n int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

// sysRand backs Rand with math/rand/v2, which is OS-seeded at startup.
type sysRand struct{}

func (sysRand) IntN(n int) int   { return rand.IntN(n) }
func (sysRand) Float64() float64 { return rand.Float64() }

// between returns a uniform int in [lo, hi] inclusive. A degenerate range
// collapses to lo.
func between(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// betweenMS is between() for millisecond spans stored as uint32.
func betweenMS(r Rand, lo, hi uint32) uint32 {
	return uint32(between(r, int(lo), int(hi)))
}

// jitter returns a signed offset in [-bound, +bound].
func jitter(r Rand, bound int) int32 {
	if bound <= 0 {
		return 0
	}
	return int32(between(r, -bound, bound))
}
