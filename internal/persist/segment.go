package persist

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Segment describes one persisted, compressed batch of WAL entries: the
// object key it's stored under and the timestamp range it covers. The
// manifest's high-water mark is the max MaxTS across every segment it
// references.
type Segment struct {
	ID          string
	MinTS       uint64
	MaxTS       uint64
	RecordCount int
}

// record is one raw entry inside a segment body. Unlike a WAL entry its
// frame has no CRC — segments are read back whole from an object store that
// already guarantees integrity, so a second checksum layer would be
// redundant — and it puts the timestamp before the length.
type record struct {
	Timestamp uint64
	Payload   []byte
}

// encodeSegmentBody concatenates records as
// [timestamp(u64 LE) | data_len(u32 LE) | payload]*, in time order.
func encodeSegmentBody(records []record) []byte {
	var size int
	for _, r := range records {
		size += 8 + 4 + len(r.Payload)
	}
	out := make([]byte, 0, size)
	var tmp [12]byte
	for _, r := range records {
		binary.LittleEndian.PutUint64(tmp[0:8], r.Timestamp)
		binary.LittleEndian.PutUint32(tmp[8:12], uint32(len(r.Payload)))
		out = append(out, tmp[:]...)
		out = append(out, r.Payload...)
	}
	return out
}

func decodeSegmentBody(body []byte) ([]record, error) {
	var records []record
	for len(body) > 0 {
		if len(body) < 12 {
			return nil, fmt.Errorf("persist: truncated segment record header")
		}
		ts := binary.LittleEndian.Uint64(body[0:8])
		n := binary.LittleEndian.Uint32(body[8:12])
		body = body[12:]
		if uint32(len(body)) < n {
			return nil, fmt.Errorf("persist: truncated segment record payload")
		}
		payload := make([]byte, n)
		copy(payload, body[:n])
		body = body[n:]
		records = append(records, record{Timestamp: ts, Payload: payload})
	}
	return records, nil
}

// compressSegment zstd-compresses a batch of records for object storage,
// matching klauspost/compress/zstd's streaming encoder idiom rather than
// the stdlib's gzip/flate packages.
func compressSegment(records []record) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("persist: new zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(encodeSegmentBody(records), nil), nil
}

func decompressSegment(data []byte) ([]record, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("persist: new zstd decoder: %w", err)
	}
	defer dec.Close()
	body, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("persist: zstd decode: %w", err)
	}
	return decodeSegmentBody(body)
}

// readSegmentBody reads an already-decompressed segment body from r and
// decodes its frames.
func readSegmentBody(r io.Reader) ([]record, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeSegmentBody(body)
}
