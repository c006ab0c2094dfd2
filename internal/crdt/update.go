package crdt

// UpdateKind tags the shape of an Update, letting replication carry any of
// the library's merge operations over the wire without an interface.
type UpdateKind int

const (
	UpdateLwwSet UpdateKind = iota
	UpdateLwwDelete
	UpdateCounterDelta
	UpdateSetAdd
	UpdateSetRemove
)

// Update is the CRDT half of a replication delta: enough to reconstruct the
// merge operation an origin replica performed, so a peer can apply the same
// merge locally instead of receiving (and trusting) a whole new value.
type Update struct {
	Kind   UpdateKind
	Bytes  []byte
	Delta  int64
	Member string
	Tag    UniqueTag
}

// LwwSet builds an Update representing a whole-value LWW overwrite.
func LwwSet(b []byte) Update { return Update{Kind: UpdateLwwSet, Bytes: b} }

// LwwDelete builds an Update representing an LWW tombstone.
func LwwDelete() Update { return Update{Kind: UpdateLwwDelete} }

// CounterDelta builds an Update representing a PN-Counter increment
// (positive) or decrement (negative delta).
func CounterDelta(d int64) Update { return Update{Kind: UpdateCounterDelta, Delta: d} }

// SetAdd builds an Update representing an OR-Set add of member under tag.
func SetAdd(member string, tag UniqueTag) Update {
	return Update{Kind: UpdateSetAdd, Member: member, Tag: tag}
}

// SetRemove builds an Update representing an OR-Set remove of member.
func SetRemove(member string) Update { return Update{Kind: UpdateSetRemove, Member: member} }
