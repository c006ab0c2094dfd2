package replication

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// Ring selects which peers are responsible for a key under
// RIDGEKV_REPLICATION_MODE=selective. It wraps rendezvous (highest random
// weight) hashing rather than a classic vnode ring: HRW gives the same
// "stable ownership under membership change" guarantee a 150-vnodes-per-node
// ring would, with O(1) membership updates and no vnode bookkeeping —
// dgryski/go-rendezvous is the teacher pack's only consistent-hashing
// library, so selective mode is built on it directly instead of hand-rolling
// a vnode ring alongside it.
type Ring struct {
	rv    *rendezvous.Rendezvous
	nodes map[string]struct{}
}

// NewRing builds a ring over the given peer addresses.
func NewRing(peers []string) *Ring {
	nodes := make(map[string]struct{}, len(peers))
	for _, p := range peers {
		nodes[p] = struct{}{}
	}
	return &Ring{rv: rendezvous.New(peers, xxhashSeeded), nodes: nodes}
}

// Add registers a newly joined peer.
func (r *Ring) Add(peer string) {
	if _, ok := r.nodes[peer]; ok {
		return
	}
	r.nodes[peer] = struct{}{}
	r.rv.Add(peer)
}

// Remove drops a peer that left or was declared dead.
func (r *Ring) Remove(peer string) {
	if _, ok := r.nodes[peer]; !ok {
		return
	}
	delete(r.nodes, peer)
	r.rv.Remove(peer)
}

// Responsible returns up to rf distinct peers responsible for key, in
// descending HRW-weight order. It looks up the top candidate, temporarily
// removes it, and repeats — O(rf) lookups, cheap at the replication
// factors this system runs at (single digits).
func (r *Ring) Responsible(key string, rf int) []string {
	if len(r.nodes) == 0 || rf <= 0 {
		return nil
	}
	removed := make([]string, 0, rf)
	picked := make([]string, 0, rf)
	for i := 0; i < rf && i < len(r.nodes)+len(removed); i++ {
		node := r.rv.Lookup(key)
		if node == "" {
			break
		}
		picked = append(picked, node)
		r.rv.Remove(node)
		removed = append(removed, node)
	}
	for _, node := range removed {
		r.rv.Add(node)
	}
	return picked
}

// xxhashSeeded adapts cespare/xxhash to rendezvous.Hasher's (string, seed)
// signature by folding the seed into the hashed bytes.
func xxhashSeeded(s string, seed uint64) uint64 {
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], seed)
	h := xxhash.New()
	h.Write(seedBuf[:])
	h.Write([]byte(s))
	return h.Sum64()
}
