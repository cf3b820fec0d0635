package main

import "time"

// Clock supplies the engine's monotonic millisecond counter. The counter
// wraps silently at 2^32; all deadline comparisons must go through elapsed()
// so behavior stays correct across the overflow.
type Clock interface {
	NowMS() uint32
}

// monotonicClock derives the counter from the process start so the value is
// immune to wall-clock adjustments (time.Since uses the monotonic reading).
type monotonicClock struct {
	start time.Time
}

func newMonotonicClock() *monotonicClock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) NowMS() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}

// elapsed reports whether deadline has passed at now on the wrapping clock.
// The signed-difference form is the only correct comparison here; a plain
// now >= deadline breaks at the uint32 wraparound.
func elapsed(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}

// advance returns t moved forward by period plus a signed jitter offset,
// clamped so the result is always strictly after t.
func advance(t, period uint32, jitterOffset int32) uint32 {
	d := int32(period) + jitterOffset
	if d < 1 {
		d = 1
	}
	return t + uint32(d)
}
