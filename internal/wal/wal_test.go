package wal

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dreamware/ridgekv/internal/config"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, 42); err != nil {
		t.Fatal(err)
	}
	seq, err := ReadHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 42 {
		t.Fatalf("sequence = %d, want 42", seq)
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, headerSize))
	if _, err := ReadHeader(buf); err == nil {
		t.Fatal("expected error for zeroed header")
	}
}

func TestEntryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Entry{Payload: []byte("hello delta"), Timestamp: 7}
	if err := WriteEntry(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadEntry(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Timestamp != want.Timestamp || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, err := ReadEntry(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF at end, got %v", err)
	}
}

func TestReadEntryDetectsTornWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEntry(&buf, Entry{Payload: []byte("full entry"), Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()
	truncated := full[:len(full)-3] // chop off the tail of the payload

	if _, err := ReadEntry(bytes.NewReader(truncated)); err != ErrTornWrite {
		t.Fatalf("expected ErrTornWrite, got %v", err)
	}
}

func TestReadAllStopsAtTornTrailingEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteHeader(f, 0); err != nil {
		t.Fatal(err)
	}
	if err := WriteEntry(f, Entry{Payload: []byte("durable-1"), Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := WriteEntry(f, Entry{Payload: []byte("durable-2"), Timestamp: 2}); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash mid-write of a third entry: append a truncated frame.
	if _, err := f.Write(encodeEntry(Entry{Payload: []byte("torn"), Timestamp: 3})[:10]); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, entries, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (torn trailing entry must be dropped)", len(entries))
	}
	if string(entries[0].Payload) != "durable-1" || string(entries[1].Payload) != "durable-2" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestActorAppendAlwaysPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "always.wal")

	a, err := Open(path, config.FsyncAlways, 4)
	if err != nil {
		t.Fatal(err)
	}

	for i := uint64(0); i < 10; i++ {
		if err := a.Append([]byte("payload"), i); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if a.Sequence() != 10 {
		t.Fatalf("sequence = %d, want 10", a.Sequence())
	}
	a.Close()

	_, entries, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Fatalf("got %d entries after reopen, want 10", len(entries))
	}
}

func TestActorAppendNoPolicyDoesNotBlockOnSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no.wal")

	a, err := Open(path, config.FsyncNo, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.Append([]byte("x"), 1); err != nil {
		t.Fatal(err)
	}
	if a.Sequence() != 1 {
		t.Fatalf("sequence = %d, want 1", a.Sequence())
	}
}

func TestActorTruncateDropsEntriesAtOrBelowHWM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trunc.wal")

	a, err := Open(path, config.FsyncAlways, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	for i := uint64(1); i <= 5; i++ {
		if err := a.Append([]byte("v"), i); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Truncate(3); err != nil {
		t.Fatal(err)
	}
	if a.Sequence() != 2 {
		t.Fatalf("sequence after truncate = %d, want 2", a.Sequence())
	}

	_, entries, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Timestamp != 4 || entries[1].Timestamp != 5 {
		t.Fatalf("unexpected entries after truncate: %+v", entries)
	}
}
