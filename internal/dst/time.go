// Package dst implements the deterministic-simulation substrate: virtual
// time with a production and a simulated TimeSource, a seeded PRNG, and a
// probabilistic fault injector ("buggify").
package dst

import "fmt"

// VirtualTime is a monotonic simulated clock measured in milliseconds. It
// never reads the wall clock; every advance is explicit, which is what
// makes a DST run reproducible from its seed.
type VirtualTime uint64

// Before reports whether t is strictly earlier than other.
func (t VirtualTime) Before(other VirtualTime) bool { return t < other }

// Add returns t advanced by ms milliseconds.
func (t VirtualTime) Add(ms uint64) VirtualTime { return t + VirtualTime(ms) }

func (t VirtualTime) String() string { return fmt.Sprintf("%dms", uint64(t)) }

// TimeSource is the capability interface production and simulated code
// both implement, per spec.md §9's polymorphism note: every call that
// would otherwise reach for the wall clock goes through this interface
// instead.
type TimeSource interface {
	Now() VirtualTime
}

// WallClock is the production TimeSource. It converts real elapsed time
// since the clock was created into a VirtualTime.
type WallClock struct {
	start realClock
}

// realClock is narrowed to the one stdlib call WallClock needs, so it can
// be swapped in tests without importing "time" everywhere.
type realClock interface {
	sinceStartMillis() uint64
}

// NewWallClock returns a TimeSource backed by the real clock.
func NewWallClock() *WallClock {
	return &WallClock{start: newMonotonicStart()}
}

// Now returns milliseconds elapsed since the WallClock was created.
func (w *WallClock) Now() VirtualTime {
	return VirtualTime(w.start.sinceStartMillis())
}

// SimulationClock is the DST TimeSource: time only moves when the test
// driver calls AdvanceBy/AdvanceTo, giving every run of the same seed
// identical time advances regardless of wall-clock scheduling jitter.
type SimulationClock struct {
	now VirtualTime
}

// NewSimulationClock returns a clock starting at t=0.
func NewSimulationClock() *SimulationClock {
	return &SimulationClock{}
}

// Now returns the current virtual time.
func (s *SimulationClock) Now() VirtualTime {
	return s.now
}

// AdvanceBy moves the clock forward by ms milliseconds.
func (s *SimulationClock) AdvanceBy(ms uint64) {
	s.now += VirtualTime(ms)
}

// AdvanceTo moves the clock forward to t. It is a no-op (never moves
// backward) if t is already in the past, since virtual time must stay
// monotonic.
func (s *SimulationClock) AdvanceTo(t VirtualTime) {
	if t > s.now {
		s.now = t
	}
}
