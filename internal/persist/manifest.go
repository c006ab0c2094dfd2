package persist

import (
	"context"
	"encoding/json"
	"fmt"
)

const manifestKey = "manifest.json"

// Manifest is the durable record of every segment a persister has
// flushed, plus a monotonic generation number bumped on every write.
// Recovery reads it to compute the WAL high-water mark before replaying
// anything.
type Manifest struct {
	Generation int       `json:"generation"`
	Segments   []Segment `json:"segments"`
}

// HighWaterMark is the max MaxTS across every referenced segment: the WAL
// may truncate any entry at or below this timestamp, since it's already
// durably streamed.
func (m Manifest) HighWaterMark() uint64 {
	var hwm uint64
	for _, s := range m.Segments {
		if s.MaxTS > hwm {
			hwm = s.MaxTS
		}
	}
	return hwm
}

// loadManifest reads the manifest from store, returning an empty
// zero-generation Manifest if none has been written yet (a brand new
// node).
func loadManifest(ctx context.Context, store ObjectStore) (Manifest, error) {
	data, err := store.Get(ctx, manifestKey)
	if err != nil {
		return Manifest{}, nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("persist: decode manifest: %w", err)
	}
	return m, nil
}

// saveManifest appends seg to the manifest and writes it back with an
// incremented generation.
func saveManifest(ctx context.Context, store ObjectStore, m Manifest, seg Segment) (Manifest, error) {
	next := Manifest{
		Generation: m.Generation + 1,
		Segments:   append(append([]Segment{}, m.Segments...), seg),
	}
	data, err := json.Marshal(next)
	if err != nil {
		return Manifest{}, fmt.Errorf("persist: encode manifest: %w", err)
	}
	if err := store.Put(ctx, manifestKey, data); err != nil {
		return Manifest{}, fmt.Errorf("persist: write manifest: %w", err)
	}
	return next, nil
}
