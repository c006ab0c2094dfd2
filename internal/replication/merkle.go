package replication

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const bucketCount = 256

// MerkleTree is a fixed-size 256-bucket Merkle tree over this replica's
// keyspace, used for anti-entropy digest comparison: two replicas with
// the same root digest are known to be fully converged without comparing
// every key; a differing root narrows the search to the handful of
// buckets whose digests also differ.
type MerkleTree struct {
	mu      sync.Mutex
	buckets [bucketCount]bucket
}

type bucket struct {
	versions map[string]uint64 // key -> last-known Lamport time, for digest purposes
	dirty    bool
	digest   uint64
}

// NewMerkleTree returns an empty tree.
func NewMerkleTree() *MerkleTree {
	t := &MerkleTree{}
	for i := range t.buckets {
		t.buckets[i].versions = make(map[string]uint64)
	}
	return t
}

func bucketIndex(key string) int {
	return int(xxhash.Sum64String(key) % bucketCount)
}

// Observe records that key was last written at Lamport time ts, marking
// its bucket dirty so the next digest read recomputes it lazily rather
// than on every single mutation.
func (t *MerkleTree) Observe(key string, ts uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := &t.buckets[bucketIndex(key)]
	if cur, ok := b.versions[key]; ok && cur >= ts {
		return
	}
	b.versions[key] = ts
	b.dirty = true
}

// BucketDigest returns bucket i's digest, recomputing it first if dirty.
func (t *MerkleTree) BucketDigest(i int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recompute(i)
}

func (t *MerkleTree) recompute(i int) uint64 {
	b := &t.buckets[i]
	if !b.dirty {
		return b.digest
	}
	keys := make([]string, 0, len(b.versions))
	for k := range b.versions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		h.Write([]byte(k))
		var tsBuf [8]byte
		putUint64(tsBuf[:], b.versions[k])
		h.Write(tsBuf[:])
	}
	b.digest = h.Sum64()
	b.dirty = false
	return b.digest
}

// RootDigest is the hash of every bucket digest concatenated in order —
// two replicas agree on this iff every bucket agrees.
func (t *MerkleTree) RootDigest() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := xxhash.New()
	var buf [8]byte
	for i := range t.buckets {
		putUint64(buf[:], t.recompute(i))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// BucketDigests snapshots every bucket's current digest, for comparing
// against a peer's snapshot bucket-by-bucket.
func (t *MerkleTree) BucketDigests() [bucketCount]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out [bucketCount]uint64
	for i := range t.buckets {
		out[i] = t.recompute(i)
	}
	return out
}

// KeysInBucket returns the keys this replica knows about in bucket i, for
// pulling deltas once a digest mismatch has narrowed divergence to it.
func (t *MerkleTree) KeysInBucket(i int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := &t.buckets[i]
	keys := make([]string, 0, len(b.versions))
	for k := range b.versions {
		keys = append(keys, k)
	}
	return keys
}

// DivergentBuckets compares this tree's bucket digests against a peer's
// and returns the indexes that disagree.
func (t *MerkleTree) DivergentBuckets(peer [bucketCount]uint64) []int {
	mine := t.BucketDigests()
	var diff []int
	for i := range mine {
		if mine[i] != peer[i] {
			diff = append(diff, i)
		}
	}
	return diff
}

func putUint64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}
