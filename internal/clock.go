package internal

import (
	"strconv"
	"sync/atomic"
)

// Timestamp is a point on the logical clock.
// Only ordering is meaningful, the absolute value carries no information.
type Timestamp uint64

// Gt reports whether t was issued after other.
func (t Timestamp) Gt(other Timestamp) bool { return t > other }

// Eq reports whether t and other are the same instant.
func (t Timestamp) Eq(other Timestamp) bool { return t == other }

func (t Timestamp) String() string {
	return "@" + strconv.FormatUint(uint64(t), 10)
}

// Clock issues strictly increasing timestamps.
// A single clock is shared by every runtime in the process so that staleness
// comparisons stay meaningful when values cross goroutines.
type Clock struct {
	now atomic.Uint64
}

func NewClock() *Clock {
	c := &Clock{}
	c.now.Store(1)
	return c
}

// Now returns the most recently issued timestamp.
func (c *Clock) Now() Timestamp {
	return Timestamp(c.now.Load())
}

// Bump issues the next timestamp, greater than every previously issued one.
func (c *Clock) Bump() Timestamp {
	return Timestamp(c.now.Add(1))
}

var processClock = NewClock()

// ProcessClock returns the clock shared by all runtimes.
func ProcessClock() *Clock {
	return processClock
}
