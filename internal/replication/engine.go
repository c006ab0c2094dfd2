package replication

import (
	"sync/atomic"
	"time"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/router"
)

// Durable is the subset of *wal.Actor the engine needs: every outbound
// delta is hung off both gossip and the WAL before the command that
// produced it is acknowledged to the client.
type Durable interface {
	Append(payload []byte, ts uint64) error
}

// Engine is the CRDT replication engine: it takes the deltas the router
// produces from local mutations, stamps them with a dedup ID, hands them
// to the gossip dispatcher and the WAL, and applies inbound deltas from
// peers back into the router's shards through a replication-free path
// (ApplyDelta never produces another outbound delta, so inbound traffic
// can never boomerang into another round of gossip).
type Engine struct {
	self   clock.ReplicaID
	router *router.Router
	wal    Durable
	gossip *Dispatcher
	merkle *MerkleTree
	peers  *PeerTracker

	seq atomic.Uint64
}

// NewEngine wires a replication engine around an already-constructed
// router, WAL actor, and gossip dispatcher. gossip may be nil for
// single-node or DST runs with no peers configured, in which case
// outbound deltas are still durably WAL'd but never gossiped.
func NewEngine(self clock.ReplicaID, r *router.Router, w Durable, g *Dispatcher) *Engine {
	e := &Engine{
		self:   self,
		router: r,
		wal:    w,
		gossip: g,
		merkle: NewMerkleTree(),
		peers:  NewPeerTracker(time.Now),
	}
	if g != nil {
		g.onDelta = e.applyInbound
	}
	return e
}

// Publish durably records and gossips every delta a just-executed command
// produced. Call it with the []*delta.Delta a router.Dispatch call
// returned; it is a no-op for reads, which never produce deltas.
func (e *Engine) Publish(deltas []*delta.Delta) error {
	for _, d := range deltas {
		if d.ID == (delta.ID{}) {
			d.ID = delta.ID{Key: d.Key, Seq: e.seq.Add(1), Origin: e.self}
		}
		e.merkle.Observe(d.Key, d.Ts.Time)

		if err := e.wal.Append(delta.Encode(d), d.Ts.Time); err != nil {
			return err
		}
		if e.gossip != nil {
			e.gossip.Send(d)
		}
	}
	return nil
}

// applyInbound is the gossip dispatcher's onDelta callback: merge the
// delta into the shard that owns its key, then record it in the Merkle
// tree and the WAL — but never re-publish it, which is what keeps
// replication from looping.
func (e *Engine) applyInbound(d *delta.Delta) {
	if err := e.router.ApplyDelta(d); err != nil {
		return
	}
	e.merkle.Observe(d.Key, d.Ts.Time)
	_ = e.wal.Append(delta.Encode(d), d.Ts.Time)
}

// RunAntiEntropy blocks, periodically comparing this replica's Merkle
// root against every gossip peer's and pulling deltas for any bucket
// that disagrees, until stop is closed. cmd/ridgekv does not start it. Its
// periodic-loop shape matches the teacher's HealthMonitor
// (internal/coordinator/health_monitor.go).
func (e *Engine) RunAntiEntropy(stop <-chan struct{}, interval time.Duration, exchange DigestExchanger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if e.gossip == nil {
				continue
			}
			for _, peer := range e.gossip.Peers() {
				e.syncWithPeer(peer, exchange)
			}
		case <-stop:
			return
		}
	}
}

// DigestExchanger is the anti-entropy RPC boundary: how a peer's root and
// per-bucket digests are fetched, and how missing deltas are pulled once
// a divergent bucket is found. It is deliberately abstracted behind an
// interface rather than tied to the gossip transport, since digest
// exchange is a request/response protocol and memberlist's gossip
// dispatcher is fire-and-forget.
type DigestExchanger interface {
	RootDigest(peer string) (uint64, error)
	BucketDigests(peer string) ([bucketCount]uint64, error)
	PullDeltas(peer string, bucket int, keys []string) ([]*delta.Delta, error)
}

func (e *Engine) syncWithPeer(peer string, exchange DigestExchanger) {
	remoteRoot, err := exchange.RootDigest(peer)
	if err != nil {
		e.peers.OnPartition(peer)
		return
	}
	if remoteRoot == e.merkle.RootDigest() {
		e.peers.OnDigestMatch(peer)
		return
	}

	e.peers.OnDigestMismatch(peer)
	remoteBuckets, err := exchange.BucketDigests(peer)
	if err != nil {
		return
	}
	diverging := e.merkle.DivergentBuckets(remoteBuckets)
	if len(diverging) == 0 {
		e.peers.OnDigestMatch(peer)
		return
	}

	e.peers.OnSyncStarted(peer)
	for _, bucketIdx := range diverging {
		keys := e.merkle.KeysInBucket(bucketIdx)
		deltas, err := exchange.PullDeltas(peer, bucketIdx, keys)
		if err != nil {
			continue
		}
		for _, d := range deltas {
			e.applyInbound(d)
		}
	}
	e.peers.OnSyncCompleted(peer)
}

// Peers exposes the peer tracker for status surfaces.
func (e *Engine) Peers() *PeerTracker { return e.peers }

// Merkle exposes the tree so a DigestExchanger implementation (an RPC
// server handler) can answer RootDigest/BucketDigests/PullDeltas
// requests against this replica's own state.
func (e *Engine) Merkle() *MerkleTree { return e.merkle }
