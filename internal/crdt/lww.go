// Package crdt implements the conflict-free replicated data types used by
// the replication engine: a last-writer-wins register, grow-only and
// positive-negative counters, and grow-only / observed-remove sets. Every
// type exposes a pure Merge that is commutative, associative, and
// idempotent, plus a VerifyInvariants hook that reports a malformed value
// (for example one built without its constructor).
package crdt

import "github.com/dreamware/ridgekv/internal/clock"

// LwwRegister is a last-writer-wins register: a value tagged with a Lamport
// timestamp, plus a tombstone bit so deletes can outrun a stale concurrent
// write. Ties are broken by the Lamport clock's own (time, replica) order,
// so Merge never needs a separate tiebreak rule.
type LwwRegister[V comparable] struct {
	Value     V
	Ts        clock.LamportClock
	Tombstone bool
}

// NewLwwRegister creates a register holding value at the given timestamp.
func NewLwwRegister[V comparable](value V, ts clock.LamportClock) LwwRegister[V] {
	return LwwRegister[V]{Value: value, Ts: ts}
}

// Set returns a new register reflecting a local write at ts. Zero value is
// a legitimate non-tombstone value; use Delete for removal.
func (r LwwRegister[V]) Set(value V, ts clock.LamportClock) LwwRegister[V] {
	return LwwRegister[V]{Value: value, Ts: ts}
}

// Delete returns a tombstoned register at ts. The value is reset to its
// zero value since it is no longer observable.
func (r LwwRegister[V]) Delete(ts clock.LamportClock) LwwRegister[V] {
	var zero V
	return LwwRegister[V]{Value: zero, Ts: ts, Tombstone: true}
}

// Merge keeps whichever register has the higher Lamport timestamp. Because
// LamportClock.Less totally orders (time, replica) pairs, Merge is
// commutative, associative, and idempotent: merge(a,a) always picks a
// (neither Ts is strictly less than the other), and the winner of any pair
// depends only on the pair's timestamps, not merge order.
func (r LwwRegister[V]) Merge(other LwwRegister[V]) LwwRegister[V] {
	if other.Ts.Less(r.Ts) {
		return r
	}
	if r.Ts.Less(other.Ts) {
		return other
	}
	// Equal timestamps only happen when merging a register with itself
	// (Lamport timestamps are unique per (replica, tick)); keep r.
	return r
}

// IsPresent reports whether the register holds a live (non-tombstoned)
// value.
func (r LwwRegister[V]) IsPresent() bool {
	return !r.Tombstone
}

// VerifyInvariants is a no-op for LwwRegister: every field combination is a
// valid state. It exists so every CRDT type exposes the same method.
func (r LwwRegister[V]) VerifyInvariants() error {
	return nil
}
