package dst

import "time"

// monotonicStart is the only place in the package that touches the
// standard library's wall clock; WallClock depends on the realClock
// interface, not on this type, to keep time.Now() out of the rest of the
// package.
type monotonicStart struct {
	t0 time.Time
}

func newMonotonicStart() realClock {
	return &monotonicStart{t0: time.Now()}
}

func (m *monotonicStart) sinceStartMillis() uint64 {
	return uint64(time.Since(m.t0).Milliseconds())
}
