package wal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dreamware/ridgekv/internal/config"
)

// request is one pending Append, parked on the actor's submit channel until
// its batch is flushed.
type request struct {
	entry Entry
	done  chan error
}

// Actor is the single writer goroutine every shard executor's mutations
// fsync through: a group-commit pattern matching the teacher's
// periodic-goroutine-owns-its-state discipline (internal/coordinator's
// HealthMonitor), applied here to batching fsyncs instead of health
// checks. Appends are written only by the run goroutine; the everysec
// policy adds a goroutine that calls Sync on the file once a second, and
// Truncate rewrites and reopens the file from its caller's goroutine
// under mu.
type Actor struct {
	file      *os.File
	policy    config.FsyncPolicy
	batchSize int

	submit chan *request
	stopCh chan struct{}
	doneCh chan struct{}

	mu  sync.Mutex
	seq uint64
}

// Open creates or appends to the WAL file at path and starts its
// group-commit goroutine. A fresh file gets a header written with sequence
// 0; an existing file's header is left untouched (its sequence is whatever
// recovery already assigned it).
func Open(path string, policy config.FsyncPolicy, batchSize int) (*Actor, error) {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	if isNew {
		if err := WriteHeader(f, 0); err != nil {
			f.Close()
			return nil, err
		}
	}

	if batchSize <= 0 {
		batchSize = 64
	}
	a := &Actor{
		file:      f,
		policy:    policy,
		batchSize: batchSize,
		submit:    make(chan *request),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go a.run()
	if policy == config.FsyncEverySecond {
		go a.periodicSync()
	}
	return a, nil
}

// Append submits payload for durable write at virtual timestamp ts and
// blocks until the policy's ack point: Always acks after the group's
// fsync succeeds (or returns its error), EverySecond and No ack as soon as
// the write() call lands, trading durability window for lower latency.
func (a *Actor) Append(payload []byte, ts uint64) error {
	req := &request{entry: Entry{Payload: payload, Timestamp: ts}, done: make(chan error, 1)}
	select {
	case a.submit <- req:
	case <-a.doneCh:
		return fmt.Errorf("wal: actor closed")
	}
	return <-req.done
}

// Close flushes any pending batch and stops the writer goroutine.
func (a *Actor) Close() error {
	close(a.stopCh)
	<-a.doneCh
	return a.file.Close()
}

func (a *Actor) run() {
	defer close(a.doneCh)
	const batchWindow = 2 * time.Millisecond
	timer := time.NewTimer(batchWindow)
	defer timer.Stop()

	var batch []*request
	flush := func() {
		if len(batch) == 0 {
			return
		}
		a.flush(batch)
		batch = nil
	}

	for {
		select {
		case req := <-a.submit:
			batch = append(batch, req)
			if len(batch) >= a.batchSize {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(batchWindow)
			}
		case <-timer.C:
			flush()
			timer.Reset(batchWindow)
		case <-a.stopCh:
			flush()
			return
		}
	}
}

// flush writes every entry in batch, then resolves all waiters according
// to the configured fsync policy — per spec.md §4.5, ONE fsync per batch
// and all-or-nothing acknowledgement under Always.
func (a *Actor) flush(batch []*request) {
	a.mu.Lock()
	var writeErr error
	for _, req := range batch {
		if writeErr == nil {
			writeErr = WriteEntry(a.file, req.entry)
			if writeErr == nil {
				a.seq++
			}
		}
	}
	a.mu.Unlock()

	switch a.policy {
	case config.FsyncAlways:
		syncErr := writeErr
		if syncErr == nil {
			syncErr = a.file.Sync()
		}
		for _, req := range batch {
			req.done <- syncErr
		}
	default: // EverySecond, No: ack once the write lands, fsync is async or skipped
		for _, req := range batch {
			req.done <- writeErr
		}
	}
}

func (a *Actor) periodicSync() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.file.Sync()
		case <-a.doneCh:
			return
		}
	}
}

// Sequence returns the number of entries this Actor has written since Open
// (reset to the kept count by Truncate). Under the everysec and no policies
// a counted entry is not necessarily fsynced.
func (a *Actor) Sequence() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seq
}

// Truncate drops every entry with Timestamp <= hwm, rewriting the file with
// only the entries the manifest's high-water mark says are still
// un-streamed. Per spec.md §4.5 the WAL must never truncate an entry that
// hasn't been durably streamed yet; callers are responsible for only
// passing a hwm backed by a manifest generation that's actually landed.
func (a *Actor) Truncate(hwm uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.file.Name()
	if _, err := a.file.Seek(0, 0); err != nil {
		return fmt.Errorf("wal: truncate seek: %w", err)
	}
	sequence, err := ReadHeader(a.file)
	if err != nil {
		return fmt.Errorf("wal: truncate read header: %w", err)
	}

	var kept []Entry
	for {
		e, err := ReadEntry(a.file)
		if err == io.EOF || err == ErrTornWrite {
			break
		}
		if err != nil {
			return fmt.Errorf("wal: truncate scan: %w", err)
		}
		if e.Timestamp > hwm {
			kept = append(kept, e)
		}
	}

	tmpPath := path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("wal: truncate create temp: %w", err)
	}
	if err := WriteHeader(tmp, sequence); err != nil {
		tmp.Close()
		return err
	}
	for _, e := range kept {
		if err := WriteEntry(tmp, e); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("wal: truncate rename: %w", err)
	}

	newFile, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("wal: truncate reopen: %w", err)
	}
	a.file.Close()
	a.file = newFile
	a.seq = uint64(len(kept))
	return nil
}
