// Package router maps keys to shards and fans commands out across them. It
// owns no data itself — every shard's ShardState is guarded by that Shard's
// own mutex; Router only decides which one to talk to and how to recombine
// the replies, generalizing the
// teacher's Shard.OwnsKey (FNV-1a) into a proper hash-based dispatcher.
package router

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/dst"
	"github.com/dreamware/ridgekv/internal/executor"
)

// Shard pairs a ShardState with the mutex that serializes access to it.
// Router never mutates ShardState directly — every call goes through
// Execute or ApplyDelta, which hold the mutex for the whole call.
type Shard struct {
	State *executor.ShardState
	mu    sync.Mutex
}

// Execute runs cmd against this shard under its own mutex, standing in for
// the per-shard actor/mailbox a production deployment would use instead
// (spec.md never prescribes a concurrency primitive for the shard boundary
// beyond "single owner"; a mutex satisfies that without requiring callers to
// manage goroutines and channels themselves).
func (s *Shard) Execute(cmd command.Command, now dst.VirtualTime) (command.RespValue, *delta.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return executor.Execute(s.State, cmd, now)
}

// ApplyDelta merges an inbound replication delta into this shard under
// the same exclusive-owner mutex Execute uses, so peer-applied merges and
// locally-dispatched commands never interleave mid-mutation.
func (s *Shard) ApplyDelta(d *delta.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return executor.ApplyDelta(s.State, d)
}

// Router owns the fixed set of shards a ridgekv instance was started with.
// NumShards never changes after NewRouter — dynamic resharding is an
// explicit non-goal, same as the teacher's coordinator-driven reassignment
// is left out here.
type Router struct {
	Shards []*Shard
}

// NewRouter wires up numShards empty shards, each owned by replica self.
// Every shard on one ridgekv instance shares the same replica identity:
// replication distinguishes origins at the cluster level, not the shard
// level, so there is no need for a per-shard replica id scheme.
func NewRouter(numShards int, self clock.ReplicaID, lruSize int) *Router {
	shards := make([]*Shard, numShards)
	for i := range shards {
		shards[i] = &Shard{State: executor.NewShardState(self, lruSize)}
	}
	return &Router{Shards: shards}
}

// ShardIndex returns the shard that owns key under xxhash-based
// consistent partitioning. xxhash replaces the teacher's FNV-1a: same
// contract (deterministic, uniform, stable), faster hash.
func (r *Router) ShardIndex(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(r.Shards)))
}

// Route dispatches a single-key command to its owning shard.
func (r *Router) Route(cmd command.Command, key string, now dst.VirtualTime) (command.RespValue, *delta.Delta, error) {
	idx := r.ShardIndex(key)
	return r.Shards[idx].Execute(cmd, now)
}

// ApplyDelta merges an inbound replication delta into the shard that owns
// its key, for the replication engine's peer-applied merge path.
func (r *Router) ApplyDelta(d *delta.Delta) error {
	return r.Shards[r.ShardIndex(d.Key)].ApplyDelta(d)
}

// Dispatch is the full entry point: it inspects cmd's key cardinality and
// either routes to a single shard, scatter-gathers across the shards the
// keys span, or fans out to every shard for a global command.
func (r *Router) Dispatch(cmd command.Command, now dst.VirtualTime) (command.RespValue, []*delta.Delta, error) {
	switch cmd.Kind {
	case command.KindMGet:
		return r.scatterGatherOrdered(cmd, now)
	case command.KindMSet, command.KindMSetNX, command.KindDel, command.KindUnlink, command.KindExists:
		return r.scatterGatherAggregate(cmd, now)
	case command.KindSInter, command.KindSUnion, command.KindSDiff:
		return r.scatterGatherSetOp(cmd, now)
	case command.KindKeys:
		return r.fanOutKeys(cmd, now)
	case command.KindScan:
		return r.scanAcrossShards(cmd, now)
	case command.KindDBSize:
		return r.fanOutDBSize(now)
	case command.KindFlushDB, command.KindFlushAll:
		return r.fanOutFlush(cmd, now)
	}
	key, ok := firstArgKey(cmd)
	if !ok {
		reply, d, err := r.Shards[0].Execute(cmd, now)
		return reply, deltaSlice(d), err
	}
	reply, d, err := r.Route(cmd, key, now)
	return reply, deltaSlice(d), err
}

func deltaSlice(d *delta.Delta) []*delta.Delta {
	if d == nil {
		return nil
	}
	return []*delta.Delta{d}
}

func firstArgKey(cmd command.Command) (string, bool) {
	if len(cmd.Args) == 0 {
		return "", false
	}
	return string(cmd.Args[0]), true
}
