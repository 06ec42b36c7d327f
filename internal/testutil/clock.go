// Package testutil provides deterministic stand-ins for clocks and
// identifiers, used by tests and the conformance harness.
package testutil

import "sync"

// DeterministicClock is a logical clock counting up from a fixed origin.
// It never reads wall time, so runs that tick it the same way see the same
// values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns origin+1.
func NewDeterministicClock(origin int64) *DeterministicClock {
	return &DeterministicClock{seq: origin}
}

// Next advances the clock by one and returns the new value.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out, or the origin.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
