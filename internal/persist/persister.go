package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/wal"
)

// Persister drains durable WAL entries into compressed segments on an
// ObjectStore, batching the way the WAL's own group-commit actor batches
// fsyncs: accumulate up to a size or a short timer, then flush once.
type Persister struct {
	store     ObjectStore
	batchSize int

	submit chan record
	stopCh chan struct{}
	doneCh chan struct{}

	mu       sync.Mutex
	manifest Manifest
}

// NewPersister loads any existing manifest from store and starts the
// background flush goroutine.
func NewPersister(ctx context.Context, store ObjectStore, batchSize int) (*Persister, error) {
	m, err := loadManifest(ctx, store)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 256
	}
	p := &Persister{
		store:     store,
		batchSize: batchSize,
		submit:    make(chan record),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		manifest:  m,
	}
	go p.run()
	return p, nil
}

// Submit hands one durable WAL entry to the persister for eventual
// segment flushing. It does not block on the flush itself — only on
// delivery to the batching goroutine.
func (p *Persister) Submit(e wal.Entry) {
	select {
	case p.submit <- record{Timestamp: e.Timestamp, Payload: e.Payload}:
	case <-p.doneCh:
	}
}

// HighWaterMark returns the manifest's current high-water mark: the WAL
// may truncate any entry at or below this timestamp.
func (p *Persister) HighWaterMark() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.manifest.HighWaterMark()
}

// Close flushes any pending batch and stops the background goroutine.
func (p *Persister) Close() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *Persister) run() {
	defer close(p.doneCh)
	const flushWindow = 250 * time.Millisecond
	timer := time.NewTimer(flushWindow)
	defer timer.Stop()

	var batch []record
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.flush(batch); err != nil {
			// The object store retried internally via backoff; a
			// persistent failure here just leaves the WAL un-truncated,
			// which is safe — recovery will simply replay more.
			_ = err
		}
		batch = nil
	}

	for {
		select {
		case r := <-p.submit:
			batch = append(batch, r)
			if len(batch) >= p.batchSize {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(flushWindow)
			}
		case <-timer.C:
			flush()
			timer.Reset(flushWindow)
		case <-p.stopCh:
			flush()
			return
		}
	}
}

func (p *Persister) flush(batch []record) error {
	minTS, maxTS := batch[0].Timestamp, batch[0].Timestamp
	for _, r := range batch {
		if r.Timestamp < minTS {
			minTS = r.Timestamp
		}
		if r.Timestamp > maxTS {
			maxTS = r.Timestamp
		}
	}

	body, err := compressSegment(batch)
	if err != nil {
		return err
	}
	seg := Segment{
		ID:          fmt.Sprintf("segments/%s.zst", uuid.NewString()),
		MinTS:       minTS,
		MaxTS:       maxTS,
		RecordCount: len(batch),
	}

	ctx := context.Background()
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	err = backoff.Retry(func() error {
		return p.store.Put(ctx, seg.ID, body)
	}, b)
	if err != nil {
		return fmt.Errorf("persist: write segment %s: %w", seg.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := saveManifest(ctx, p.store, p.manifest, seg)
	if err != nil {
		return err
	}
	p.manifest = next
	return nil
}

// Recover reconstructs ridgekv's durable state from a manifest and a WAL
// file: read the manifest's high-water mark, scan the WAL, and replay
// every entry with a timestamp strictly greater than the high-water
// mark (the ones that were never streamed into a segment). Replaying an
// already-streamed entry would be harmless too, since every entry is a
// CRDT delta and merge is idempotent, but skipping streamed entries keeps
// recovery fast on a long-lived node.
func Recover(ctx context.Context, store ObjectStore, walPath string) (hwm uint64, deltas []*delta.Delta, err error) {
	m, err := loadManifest(ctx, store)
	if err != nil {
		return 0, nil, err
	}
	hwm = m.HighWaterMark()

	_, entries, err := wal.ReadAll(walPath)
	if err != nil {
		return hwm, nil, fmt.Errorf("persist: recover: read wal: %w", err)
	}
	for _, e := range entries {
		if e.Timestamp <= hwm {
			continue
		}
		d, err := delta.Decode(e.Payload)
		if err != nil {
			return hwm, nil, fmt.Errorf("persist: recover: decode entry at ts %d: %w", e.Timestamp, err)
		}
		deltas = append(deltas, d)
	}
	return hwm, deltas, nil
}
