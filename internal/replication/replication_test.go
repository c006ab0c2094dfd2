package replication

import (
	"testing"
	"time"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/crdt"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/router"
)

func TestRingResponsibleIsStableAndDistinct(t *testing.T) {
	r := NewRing([]string{"a:1", "b:1", "c:1", "d:1", "e:1"})
	picked := r.Responsible("user:42", 3)
	if len(picked) != 3 {
		t.Fatalf("got %d peers, want 3", len(picked))
	}
	seen := make(map[string]bool)
	for _, p := range picked {
		if seen[p] {
			t.Fatalf("duplicate peer in responsible set: %v", picked)
		}
		seen[p] = true
	}
	again := r.Responsible("user:42", 3)
	for i := range picked {
		if picked[i] != again[i] {
			t.Fatalf("responsible set not stable across calls: %v vs %v", picked, again)
		}
	}
}

func TestRingResponsibleShrinksWithFewerNodes(t *testing.T) {
	r := NewRing([]string{"a:1", "b:1"})
	if got := r.Responsible("k", 5); len(got) != 2 {
		t.Fatalf("got %d peers, want 2 (only 2 nodes exist)", len(got))
	}
}

func TestMerkleRootDigestChangesOnObserve(t *testing.T) {
	tree := NewMerkleTree()
	before := tree.RootDigest()
	tree.Observe("k1", 5)
	after := tree.RootDigest()
	if before == after {
		t.Fatal("root digest did not change after Observe")
	}
}

func TestMerkleRootDigestStableWithoutChange(t *testing.T) {
	tree := NewMerkleTree()
	tree.Observe("k1", 5)
	first := tree.RootDigest()
	second := tree.RootDigest()
	if first != second {
		t.Fatal("root digest not stable across reads with no mutation")
	}
}

func TestMerkleDivergentBucketsFindsMismatch(t *testing.T) {
	a := NewMerkleTree()
	b := NewMerkleTree()
	a.Observe("only-in-a", 1)
	b.Observe("only-in-b", 1)

	diverging := a.DivergentBuckets(b.BucketDigests())
	if len(diverging) == 0 {
		t.Fatal("expected at least one divergent bucket between differing trees")
	}
}

func TestMerkleConvergesAfterSameObserves(t *testing.T) {
	a := NewMerkleTree()
	b := NewMerkleTree()
	a.Observe("k", 9)
	b.Observe("k", 9)
	if a.RootDigest() != b.RootDigest() {
		t.Fatal("trees with identical observations should converge")
	}
}

func TestPeerTrackerStateMachine(t *testing.T) {
	fixed := time.Unix(0, 0)
	tr := NewPeerTracker(func() time.Time { return fixed })

	if tr.State("p1") != Divergent {
		t.Fatalf("unseen peer should default to Divergent, got %v", tr.State("p1"))
	}
	tr.OnDigestMismatch("p1")
	if tr.State("p1") != Divergent {
		t.Fatalf("after mismatch, want Divergent, got %v", tr.State("p1"))
	}
	tr.OnSyncStarted("p1")
	if tr.State("p1") != Syncing {
		t.Fatalf("after sync start, want Syncing, got %v", tr.State("p1"))
	}
	tr.OnSyncCompleted("p1")
	if tr.State("p1") != Healthy {
		t.Fatalf("after sync completion, want Healthy, got %v", tr.State("p1"))
	}
	tr.OnPartition("p1")
	if tr.State("p1") != Divergent {
		t.Fatalf("partition should force Divergent, got %v", tr.State("p1"))
	}
}

type fakeDurable struct {
	appended [][]byte
}

func (f *fakeDurable) Append(payload []byte, ts uint64) error {
	f.appended = append(f.appended, payload)
	return nil
}

func TestEnginePublishWritesWALWithoutGossip(t *testing.T) {
	r := router.NewRouter(4, clock.ReplicaID(1), 16)
	w := &fakeDurable{}
	e := NewEngine(clock.ReplicaID(1), r, w, nil)

	d := &delta.Delta{
		Key:    "k1",
		Update: crdt.Update{Kind: crdt.UpdateLwwSet, Bytes: []byte("v1")},
		Source: clock.ReplicaID(1),
		Ts:     clock.LamportClock{Time: 1, ReplicaID: clock.ReplicaID(1)},
	}
	if err := e.Publish([]*delta.Delta{d}); err != nil {
		t.Fatal(err)
	}
	if len(w.appended) != 1 {
		t.Fatalf("wal got %d appends, want 1", len(w.appended))
	}
	if d.ID.Seq == 0 {
		t.Fatal("expected Publish to stamp a non-zero sequence on the delta ID")
	}
}

func TestEngineApplyInboundMergesIntoRouterShard(t *testing.T) {
	r := router.NewRouter(4, clock.ReplicaID(1), 16)
	w := &fakeDurable{}
	e := NewEngine(clock.ReplicaID(2), r, w, nil)

	d := &delta.Delta{
		Key:    "hello",
		Update: crdt.Update{Kind: crdt.UpdateLwwSet, Bytes: []byte("world")},
		Source: clock.ReplicaID(1),
		Ts:     clock.LamportClock{Time: 1, ReplicaID: clock.ReplicaID(1)},
		ID:     delta.ID{Key: "hello", Seq: 1, Origin: clock.ReplicaID(1)},
	}
	e.applyInbound(d)

	idx := r.ShardIndex("hello")
	reply, _, err := r.Shards[idx].Execute(getCmd("hello"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(reply.Bulk) != "world" {
		t.Fatalf("GET hello = %q, want %q", reply.Bulk, "world")
	}
}

func getCmd(key string) command.Command {
	return command.Parse("GET", [][]byte{[]byte(key)})
}
