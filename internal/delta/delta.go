// Package delta defines the wire-level replication delta shared by the
// shard executor (which produces one per mutating command) and the
// replication engine (which gossips and persists it). It is kept in its own
// leaf package, rather than inside internal/replication, because the
// executor producing deltas and the replication engine wrapping an executor
// would otherwise form an import cycle.
package delta

import (
	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/crdt"
)

// ID uniquely identifies a delta for peer-side dedup: deliveries are
// at-least-once and unordered, so a peer tracks seen IDs to discard replays
// cheaply before any CRDT merge is attempted.
type ID struct {
	Key    string
	Seq    uint64
	Origin clock.ReplicaID
}

// Delta is produced by the shard executor on every mutating command and
// consumed by both the gossip dispatcher and the write-ahead log.
type Delta struct {
	Key    string
	Update crdt.Update
	Source clock.ReplicaID
	Ts     clock.LamportClock
	ID     ID
}
