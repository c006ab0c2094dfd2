// Package value implements the tagged-union Value type that backs every
// key in a shard: strings, lists, sets, hashes, and sorted sets. Matching
// spec.md's design note on sum types, Kind is an exhaustively-switched
// enum rather than an interface with per-kind virtual dispatch — callers
// in internal/executor switch on Kind directly.
package value

import (
	"container/list"
	"errors"
	"sort"

	"github.com/google/btree"
)

// Kind discriminates the Value tagged union.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindHash
	KindSortedSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindSortedSet:
		return "zset"
	default:
		return "unknown"
	}
}

// ErrWrongKind is returned when an operation is applied to a Value of the
// wrong Kind; callers translate it into the WRONGTYPE wire error.
var ErrWrongKind = errors.New("value: operation applied to wrong kind")

// zsetEntry is the ordered unit stored in the sorted-set B-tree: ordered by
// (Score, Member) so ties break lexicographically, matching Redis ZSET
// ordering semantics.
type zsetEntry struct {
	Member string
	Score  float64
}

func zsetLess(a, b zsetEntry) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member < b.Member
}

// Value is a single key's payload. Exactly one of the typed fields is
// meaningful, selected by Kind; the rest are zero. This mirrors a Rust
// tagged union more directly than an interface-per-kind would, and keeps
// the executor's dispatch a plain switch instead of virtual calls.
type Value struct {
	Str   []byte
	List  *list.List
	Set   map[string]struct{}
	Hash  map[string][]byte
	ZSet  *btree.BTreeG[zsetEntry]
	Score map[string]float64 // member -> score, kept in lockstep with ZSet
	Kind  Kind
}

// NewString wraps a byte slice as a KindString value.
func NewString(b []byte) *Value {
	return &Value{Kind: KindString, Str: b}
}

// NewList returns an empty KindList value.
func NewList() *Value {
	return &Value{Kind: KindList, List: list.New()}
}

// NewSet returns an empty KindSet value.
func NewSet() *Value {
	return &Value{Kind: KindSet, Set: make(map[string]struct{})}
}

// NewHash returns an empty KindHash value.
func NewHash() *Value {
	return &Value{Kind: KindHash, Hash: make(map[string][]byte)}
}

// NewSortedSet returns an empty KindSortedSet value.
func NewSortedSet() *Value {
	return &Value{
		Kind:  KindSortedSet,
		ZSet:  btree.NewG(32, zsetLess),
		Score: make(map[string]float64),
	}
}

// IsEmpty reports whether the value's collection has no members. Strings
// are never "empty" in the collection sense: an empty string is still a
// present value, per Redis semantics (SET k ""; EXISTS k => 1).
func (v *Value) IsEmpty() bool {
	switch v.Kind {
	case KindList:
		return v.List.Len() == 0
	case KindSet:
		return len(v.Set) == 0
	case KindHash:
		return len(v.Hash) == 0
	case KindSortedSet:
		return v.ZSet.Len() == 0
	default:
		return false
	}
}

// --- Sorted-set helpers built on the btree, kept here so executor command
// handlers never touch the tree directly. ---

// ZAdd inserts or updates member's score, returning true if member was new.
func (v *Value) ZAdd(member string, score float64) bool {
	if old, ok := v.Score[member]; ok {
		v.ZSet.Delete(zsetEntry{Member: member, Score: old})
		v.ZSet.ReplaceOrInsert(zsetEntry{Member: member, Score: score})
		v.Score[member] = score
		return false
	}
	v.ZSet.ReplaceOrInsert(zsetEntry{Member: member, Score: score})
	v.Score[member] = score
	return true
}

// ZRem removes member, returning true if it was present.
func (v *Value) ZRem(member string) bool {
	old, ok := v.Score[member]
	if !ok {
		return false
	}
	v.ZSet.Delete(zsetEntry{Member: member, Score: old})
	delete(v.Score, member)
	return true
}

// ZScore returns member's score and whether it is present.
func (v *Value) ZScore(member string) (float64, bool) {
	s, ok := v.Score[member]
	return s, ok
}

// ZCard returns the number of members.
func (v *Value) ZCard() int {
	return v.ZSet.Len()
}

// ZRangeByIndex returns members in ascending score order for the
// zero-based, Python-slice-style range [start, stop] (inclusive, negative
// indices count from the end), matching ZRANGE's default behavior.
func (v *Value) ZRangeByIndex(start, stop int, rev bool) []zsetEntry {
	all := make([]zsetEntry, 0, v.ZSet.Len())
	v.ZSet.Ascend(func(e zsetEntry) bool {
		all = append(all, e)
		return true
	})
	if rev {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}
	n := len(all)
	start, stop = normalizeRange(start, stop, n)
	if start > stop || n == 0 {
		return nil
	}
	return all[start : stop+1]
}

// ZRangeByScore returns members whose score is within [min, max].
func (v *Value) ZRangeByScore(min, max float64, minExcl, maxExcl bool) []zsetEntry {
	var out []zsetEntry
	v.ZSet.AscendRange(zsetEntry{Score: min}, zsetEntry{Score: max, Member: "\xff\xff\xff\xff"}, func(e zsetEntry) bool {
		if e.Score < min || e.Score > max {
			return true
		}
		if minExcl && e.Score == min {
			return true
		}
		if maxExcl && e.Score == max {
			return true
		}
		out = append(out, e)
		return true
	})
	return out
}

// ZRank returns member's zero-based rank in ascending score order.
func (v *Value) ZRank(member string) (int, bool) {
	score, ok := v.Score[member]
	if !ok {
		return 0, false
	}
	rank := 0
	found := false
	v.ZSet.Ascend(func(e zsetEntry) bool {
		if e.Member == member && e.Score == score {
			found = true
			return false
		}
		rank++
		return true
	})
	return rank, found
}

// ZPopMin removes and returns the n lowest-scored members.
func (v *Value) ZPopMin(n int) []zsetEntry {
	return v.zpop(n, false)
}

// ZPopMax removes and returns the n highest-scored members.
func (v *Value) ZPopMax(n int) []zsetEntry {
	return v.zpop(n, true)
}

func (v *Value) zpop(n int, max bool) []zsetEntry {
	var out []zsetEntry
	for i := 0; i < n && v.ZSet.Len() > 0; i++ {
		var e zsetEntry
		var ok bool
		if max {
			e, ok = v.ZSet.Max()
		} else {
			e, ok = v.ZSet.Min()
		}
		if !ok {
			break
		}
		v.ZSet.Delete(e)
		delete(v.Score, e.Member)
		out = append(out, e)
	}
	return out
}

func normalizeRange(start, stop, n int) (int, int) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

// MemberScore is the exported, sortable pair handed back to callers that
// don't need access to the btree internals.
type MemberScore struct {
	Member string
	Score  float64
}

// Entries converts internal zsetEntry slices into the exported form,
// preserving order.
func Entries(es []zsetEntry) []MemberScore {
	out := make([]MemberScore, len(es))
	for i, e := range es {
		out[i] = MemberScore{Member: e.Member, Score: e.Score}
	}
	return out
}

// SortedSetMembers returns all members with their scores in ascending score
// order.
func (v *Value) SortedSetMembers() []MemberScore {
	all := make([]zsetEntry, 0, v.ZSet.Len())
	v.ZSet.Ascend(func(e zsetEntry) bool {
		all = append(all, e)
		return true
	})
	return Entries(all)
}

// SetMembersSorted returns a set's members in sorted order, used by SMEMBERS
// for deterministic test output (Redis itself makes no ordering guarantee,
// but deterministic output makes test expectations exact).
func (v *Value) SetMembersSorted() []string {
	out := make([]string, 0, len(v.Set))
	for m := range v.Set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// HashKeysSorted returns a hash's field names in sorted order, for the same
// determinism reason as SetMembersSorted.
func (v *Value) HashKeysSorted() []string {
	out := make([]string, 0, len(v.Hash))
	for k := range v.Hash {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
