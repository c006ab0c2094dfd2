// Package executor implements the shard executor: a deterministic state
// machine that executes one command at a time against a single keyspace
// partition, given (state, command, virtual_time). It owns no goroutines
// and no locks of its own — a single actor owns a ShardState exclusively,
// matching the teacher's one-owner-per-shard model in internal/shard, just
// generalized from a byte-string store to the full Redis value model.
package executor

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/dst"
	"github.com/dreamware/ridgekv/internal/value"
)

// ExecStats tracks per-shard operation counters. Commands and Mutations are
// plain increments made under the shard's single owner; Expired and
// Evictions are updated with atomic adds.
type ExecStats struct {
	Commands   uint64
	Mutations  uint64
	Expired    uint64
	WrongType  uint64
	Evictions  uint64
}

// ShardState is one shard's entire keyspace partition: the live data, the
// expiration index, the shard's own Lamport clock (ticked on every
// mutation so deltas carry a causally meaningful timestamp), operation
// stats, and an LRU access index. CurrentTime is the shard's view of
// virtual time, advanced by the caller before Execute or Sweep runs.
type ShardState struct {
	Data        map[string]*value.Value
	Expirations map[string]dst.VirtualTime
	Clock       clock.LamportClock
	Stats       ExecStats
	LRU         *lru.Cache[string, dst.VirtualTime]
	CurrentTime dst.VirtualTime

	// lastWriteTimestamps records, per key, the Lamport timestamp of the
	// write (local or replicated) that last set its LWW-register value.
	// ApplyDelta consults this to decide whether an inbound delta is newer
	// than what's already there; it is the CRDT bookkeeping ShardState.Data
	// alone can't carry since value.Value has no timestamp field of its own.
	lastWriteTimestamps map[string]clock.LamportClock
}

// NewShardState returns an empty shard state owned by replica self.
// lruSize bounds the access-recency index; it tracks key freshness for a
// future eviction policy and has no effect on command correctness today.
func NewShardState(self clock.ReplicaID, lruSize int) *ShardState {
	l, _ := lru.New[string, dst.VirtualTime](lruSize)
	return &ShardState{
		Data:                make(map[string]*value.Value),
		Expirations:         make(map[string]dst.VirtualTime),
		Clock:               clock.NewLamportClock(self),
		LRU:                 l,
		lastWriteTimestamps: make(map[string]clock.LamportClock),
	}
}

// recordWriteTimestamp stamps key with the Lamport timestamp that produced
// its current LWW value, consulted on the next inbound ApplyDelta for key.
func (s *ShardState) recordWriteTimestamp(key string, ts clock.LamportClock) {
	s.lastWriteTimestamps[key] = ts
}

// touch records a key access in the LRU index, called once per command
// regardless of read/write. It does not tick the shard clock; only
// bumpMutation does.
func (s *ShardState) touch(key string) {
	if key != "" {
		s.LRU.Add(key, s.CurrentTime)
	}
}

// expireIfDue lazily removes key if its deadline has passed, per spec.md
// §4.1's lazy-expiration rule. Returns whether the key was (or already was)
// absent after the check.
func (s *ShardState) expireIfDue(key string) (absent bool) {
	deadline, has := s.Expirations[key]
	if !has {
		_, present := s.Data[key]
		return !present
	}
	if deadline > s.CurrentTime {
		return false
	}
	delete(s.Data, key)
	delete(s.Expirations, key)
	atomic.AddUint64(&s.Stats.Expired, 1)
	return true
}

// deleteIfEmpty enforces the empty-collection deletion policy: after a
// mutation that can shrink a collection to zero members, the key itself
// must be removed rather than left holding an empty container.
func (s *ShardState) deleteIfEmpty(key string) {
	v, ok := s.Data[key]
	if !ok {
		return
	}
	if v.IsEmpty() {
		delete(s.Data, key)
		delete(s.Expirations, key)
	}
}

// Sweep removes up to budget expired keys, driven by virtual time rather
// than a wall-clock timer so DST scenarios get identical sweep behavior
// across runs of the same seed.
func (s *ShardState) Sweep(now dst.VirtualTime, budget int) int {
	s.CurrentTime = now
	removed := 0
	for key, deadline := range s.Expirations {
		if removed >= budget {
			break
		}
		if deadline <= now {
			delete(s.Data, key)
			delete(s.Expirations, key)
			atomic.AddUint64(&s.Stats.Evictions, 1)
			removed++
		}
	}
	return removed
}

// CheckInvariants checks the shard postconditions spec.md §4.1/§8 lists:
// expirations is a subset of data, and every sorted-set value's ordered
// index and member→score map have the same length. It is cheap enough
// (bounded by shard size) to call after every Execute; only tests call it.
func (s *ShardState) CheckInvariants() error {
	for key := range s.Expirations {
		if _, ok := s.Data[key]; !ok {
			return errInvariantDanglingExpiration(key)
		}
	}
	for key, v := range s.Data {
		if v.Kind == value.KindSortedSet {
			if v.ZCard() != len(v.Score) {
				return errInvariantZSetLengthMismatch(key)
			}
		}
	}
	return nil
}
