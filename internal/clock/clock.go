// Package clock implements the logical clocks used to order events across
// replicas: a Lamport clock for CRDT merge tie-breaking and a vector clock
// for tracking causal dependencies between replicas.
package clock

import "fmt"

// ReplicaID identifies a cluster replica. It is opaque, cluster-unique, and
// assigned once at startup; nothing in this package mutates it.
type ReplicaID uint64

// LamportClock is a (time, replica) pair giving a total order over events
// generated across the cluster. A receive always sets time to
// max(local, remote)+1, so clocks only ever move forward.
type LamportClock struct {
	Time      uint64
	ReplicaID ReplicaID
}

// NewLamportClock returns a zero-valued clock for the given replica.
func NewLamportClock(id ReplicaID) LamportClock {
	return LamportClock{Time: 0, ReplicaID: id}
}

// Tick advances the clock for a local event and returns the new value. The
// receiver is not mutated; callers own their clock and assign the result
// back, matching the "owned by replica" lifecycle in the data model.
func (c LamportClock) Tick() LamportClock {
	return LamportClock{Time: c.Time + 1, ReplicaID: c.ReplicaID}
}

// Update folds in a remote timestamp observed on message receipt. Per the
// invariant in spec.md: Lamport clocks are strictly monotonic locally; a
// receive sets time := max(local, remote)+1.
func (c LamportClock) Update(remote LamportClock) LamportClock {
	t := c.Time
	if remote.Time > t {
		t = remote.Time
	}
	return LamportClock{Time: t + 1, ReplicaID: c.ReplicaID}
}

// Less implements the clock's total order: compare time first, then break
// ties on replica id so that concurrent events at two replicas never
// compare equal unless they are the same event.
func (c LamportClock) Less(other LamportClock) bool {
	if c.Time != other.Time {
		return c.Time < other.Time
	}
	return c.ReplicaID < other.ReplicaID
}

// Equal reports whether two clocks denote the same logical instant.
func (c LamportClock) Equal(other LamportClock) bool {
	return c.Time == other.Time && c.ReplicaID == other.ReplicaID
}

func (c LamportClock) String() string {
	return fmt.Sprintf("L(%d,%d)", c.Time, c.ReplicaID)
}

// VectorClock tracks, per replica, the number of events that replica has
// produced. Only the owning replica ever advances its own entry locally;
// other entries are only ever raised by Merge.
type VectorClock map[ReplicaID]uint64

// NewVectorClock returns an empty vector clock.
func NewVectorClock() VectorClock {
	return make(VectorClock)
}

// Clone returns a deep copy, safe for independent mutation.
func (v VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Tick increments self's own entry and returns the updated clock.
func (v VectorClock) Tick(self ReplicaID) VectorClock {
	next := v.Clone()
	next[self]++
	return next
}

// Merge returns the component-wise maximum of v and other, the standard
// vector-clock join.
func (v VectorClock) Merge(other VectorClock) VectorClock {
	next := v.Clone()
	for id, val := range other {
		if val > next[id] {
			next[id] = val
		}
	}
	return next
}

// LessOrEqual reports whether v happened-before-or-equal other: every entry
// in v is <= the corresponding entry in other.
func (v VectorClock) LessOrEqual(other VectorClock) bool {
	for id, val := range v {
		if other[id] < val {
			return false
		}
	}
	return true
}

// HappensBefore reports whether v strictly causally precedes other: every
// entry of v is <= other's, and at least one is strictly less.
func (v VectorClock) HappensBefore(other VectorClock) bool {
	if !v.LessOrEqual(other) {
		return false
	}
	for id, val := range other {
		if val > v[id] {
			return true
		}
	}
	return false
}

// Concurrent reports whether neither clock happened-before the other —
// the two events are causally independent.
func (v VectorClock) Concurrent(other VectorClock) bool {
	return !v.LessOrEqual(other) && !other.LessOrEqual(v)
}

// Equal reports whether two vector clocks have identical entries, treating
// a missing key and an explicit zero as the same value.
func (v VectorClock) Equal(other VectorClock) bool {
	for id, val := range v {
		if other[id] != val {
			return false
		}
	}
	for id, val := range other {
		if v[id] != val {
			return false
		}
	}
	return true
}
