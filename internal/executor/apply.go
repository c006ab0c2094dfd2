package executor

import (
	"github.com/dreamware/ridgekv/internal/crdt"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/value"
)

// ApplyDelta is the peer-side entry point the replication engine calls when
// gossip or anti-entropy delivers an inbound delta: it merges the delta's
// update into local state using the CRDT semantics appropriate to its kind,
// rather than re-running the originating command (which the peer never
// saw and has no business reconstructing).
func ApplyDelta(s *ShardState, d *delta.Delta) error {
	s.Clock = s.Clock.Update(d.Ts)

	switch d.Update.Kind {
	case crdt.UpdateLwwSet:
		return applyLwwSet(s, d)
	case crdt.UpdateLwwDelete:
		return applyLwwDelete(s, d)
	case crdt.UpdateCounterDelta:
		return applyCounterDelta(s, d)
	case crdt.UpdateSetAdd:
		return applySetAdd(s, d)
	case crdt.UpdateSetRemove:
		return applySetRemove(s, d)
	}
	return nil
}

// applyLwwSet overwrites the key only if the incoming timestamp is not
// older than whatever produced the current value, per LWW-register merge
// semantics (spec.md glossary: "merge keeps the higher timestamp").
func applyLwwSet(s *ShardState, d *delta.Delta) error {
	if cur, ok := s.lastWriteTimestamps[d.Key]; ok && d.Ts.Less(cur) {
		return nil
	}
	s.Data[d.Key] = value.NewString(append([]byte(nil), d.Update.Bytes...))
	s.recordWriteTimestamp(d.Key, d.Ts)
	return nil
}

func applyLwwDelete(s *ShardState, d *delta.Delta) error {
	if cur, ok := s.lastWriteTimestamps[d.Key]; ok && d.Ts.Less(cur) {
		return nil
	}
	delete(s.Data, d.Key)
	delete(s.Expirations, d.Key)
	s.recordWriteTimestamp(d.Key, d.Ts)
	return nil
}

// applyCounterDelta folds a PN-Counter delta into the key's counter value,
// creating it if absent. Concurrent increments from different replicas
// both survive the merge: this is strictly additive, unlike an LWW
// overwrite, which is why INCR/DECR are modeled as PN-Counter deltas
// instead of whole-value LWW (see SPEC_FULL.md §5.3).
func applyCounterDelta(s *ShardState, d *delta.Delta) error {
	v, ok := s.Data[d.Key]
	var cur int64
	if ok && v.Kind == value.KindString {
		if n, perr := parseInt(v.Str); perr == nil {
			cur = n
		}
	}
	next, perr := addChecked(cur, d.Update.Delta)
	if perr != nil {
		return nil
	}
	s.Data[d.Key] = value.NewString([]byte(formatInt64(next)))
	return nil
}

func applySetAdd(s *ShardState, d *delta.Delta) error {
	v, ok := s.Data[d.Key]
	if !ok || v.Kind != value.KindSet {
		v = value.NewSet()
		s.Data[d.Key] = v
	}
	v.Set[d.Update.Member] = struct{}{}
	return nil
}

func applySetRemove(s *ShardState, d *delta.Delta) error {
	v, ok := s.Data[d.Key]
	if !ok || v.Kind != value.KindSet {
		return nil
	}
	delete(v.Set, d.Update.Member)
	s.deleteIfEmpty(d.Key)
	return nil
}

func formatInt64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
