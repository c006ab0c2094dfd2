package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/crdt"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/wal"
	"github.com/dreamware/ridgekv/internal/config"
)

func TestSegmentRoundTrip(t *testing.T) {
	records := []record{
		{Timestamp: 1, Payload: []byte("alpha")},
		{Timestamp: 2, Payload: []byte("beta")},
	}
	compressed, err := compressSegment(records)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decompressSegment(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got[0].Payload) != "alpha" || string(got[1].Payload) != "beta" {
		t.Fatalf("got %+v", got)
	}
}

func TestManifestHighWaterMark(t *testing.T) {
	m := Manifest{Segments: []Segment{{MaxTS: 5}, {MaxTS: 12}, {MaxTS: 3}}}
	if m.HighWaterMark() != 12 {
		t.Fatalf("hwm = %d, want 12", m.HighWaterMark())
	}
}

func TestMemoryObjectStorePutGetList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()
	if err := store.Put(ctx, "segments/a", []byte("x")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "segments/a")
	if err != nil || string(got) != "x" {
		t.Fatalf("got %q, err %v", got, err)
	}
	keys, err := store.List(ctx, "segments/")
	if err != nil || len(keys) != 1 {
		t.Fatalf("keys = %v, err %v", keys, err)
	}
}

func TestLocalFSObjectStorePutGet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalFSObjectStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "segments/seg1.zst", []byte("payload")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "segments/seg1.zst")
	if err != nil || string(got) != "payload" {
		t.Fatalf("got %q, err %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "segments", "seg1.zst")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestPersisterFlushesAndUpdatesManifest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()
	p, err := NewPersister(ctx, store, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.Submit(wal.Entry{Payload: []byte("one"), Timestamp: 1})
	p.Submit(wal.Entry{Payload: []byte("two"), Timestamp: 2})

	deadline := time.Now().Add(2 * time.Second)
	for p.HighWaterMark() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hwm := p.HighWaterMark(); hwm != 2 {
		t.Fatalf("hwm = %d, want 2", hwm)
	}
}

func TestRecoverReplaysEntriesAboveHWM(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	walPath := filepath.Join(dir, "node.wal")

	actor, err := wal.Open(walPath, config.FsyncAlways, 1)
	if err != nil {
		t.Fatal(err)
	}

	d1 := &delta.Delta{
		Key:    "k1",
		Update: crdt.Update{Kind: crdt.UpdateLwwSet, Bytes: []byte("v1")},
		Source: clock.ReplicaID(1),
		Ts:     clock.LamportClock{Time: 1, ReplicaID: clock.ReplicaID(1)},
		ID:     delta.ID{Key: "k1", Seq: 1, Origin: clock.ReplicaID(1)},
	}
	d2 := &delta.Delta{
		Key:    "k2",
		Update: crdt.Update{Kind: crdt.UpdateLwwSet, Bytes: []byte("v2")},
		Source: clock.ReplicaID(1),
		Ts:     clock.LamportClock{Time: 2, ReplicaID: clock.ReplicaID(1)},
		ID:     delta.ID{Key: "k2", Seq: 2, Origin: clock.ReplicaID(1)},
	}
	if err := actor.Append(delta.Encode(d1), 1); err != nil {
		t.Fatal(err)
	}
	if err := actor.Append(delta.Encode(d2), 2); err != nil {
		t.Fatal(err)
	}
	actor.Close()

	store := NewMemoryObjectStore()
	seg := Segment{ID: "segments/s1.zst", MinTS: 1, MaxTS: 1, RecordCount: 1}
	if _, err := saveManifest(ctx, store, Manifest{}, seg); err != nil {
		t.Fatal(err)
	}

	hwm, deltas, err := Recover(ctx, store, walPath)
	if err != nil {
		t.Fatal(err)
	}
	if hwm != 1 {
		t.Fatalf("hwm = %d, want 1", hwm)
	}
	if len(deltas) != 1 || deltas[0].Key != "k2" {
		t.Fatalf("deltas = %+v, want only k2", deltas)
	}
}
