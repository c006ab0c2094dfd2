// Package wal implements the write-ahead log: the on-disk binary format
// (spec.md §4.5), a group-commit actor batching writer-goroutine appends
// into single fsyncs, and the three fsync policies (Always/EverySecond/No).
// Framing follows the teacher's preference for explicit, hand-rolled binary
// formats (internal/storage has none, but the wire-format discipline
// matches internal/command's RESP2 codec): fixed-width fields, no reflection.
package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const (
	magic   = "RWAL"
	version = 1

	headerSize = 4 + 1 + 1 + 2 + 8 // magic | version | flags | reserved | sequence
)

// Entry is one WAL record: an opaque payload (a serialized delta.Delta),
// the virtual timestamp it was written at, and the CRC32 the reader uses
// to detect a torn trailing write.
type Entry struct {
	Payload   []byte
	Timestamp uint64
}

// WriteHeader writes the fixed RWAL file header: magic, version, a reserved
// flags byte, two reserved bytes, and the starting sequence number.
func WriteHeader(w io.Writer, sequence uint64) error {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	buf[4] = version
	buf[5] = 0 // flags, reserved for future use
	// buf[6:8] reserved, left zero
	binary.LittleEndian.PutUint64(buf[8:16], sequence)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates the RWAL file header, returning the
// starting sequence number it recorded.
func ReadHeader(r io.Reader) (sequence uint64, err error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("wal: read header: %w", err)
	}
	if string(buf[0:4]) != magic {
		return 0, fmt.Errorf("wal: bad magic %q", buf[0:4])
	}
	if buf[4] != version {
		return 0, fmt.Errorf("wal: unsupported version %d", buf[4])
	}
	return binary.LittleEndian.Uint64(buf[8:16]), nil
}

// encodeEntry frames one entry as
// [data_len(u32 LE) | timestamp(u64 LE) | crc32(u32 LE) | payload]. CRC
// covers the timestamp and payload, so a torn write that truncates mid-CRC
// or mid-payload is caught by ReadEntry without needing a separate
// end-of-record marker.
func encodeEntry(e Entry) []byte {
	out := make([]byte, 4+8+4+len(e.Payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(e.Payload)))
	binary.LittleEndian.PutUint64(out[4:12], e.Timestamp)
	sum := crc32.ChecksumIEEE(out[4:12])
	sum = crc32.Update(sum, crc32.IEEETable, e.Payload)
	binary.LittleEndian.PutUint32(out[12:16], sum)
	copy(out[16:], e.Payload)
	return out
}

// WriteEntry appends one framed entry to w.
func WriteEntry(w io.Writer, e Entry) error {
	_, err := w.Write(encodeEntry(e))
	return err
}

// ReadEntry reads one framed entry from r. It returns io.EOF cleanly at a
// well-formed end of file, and ErrTornWrite when a CRC mismatch or a short
// read indicates the trailing entry was only partially flushed before a
// crash — the caller (recovery) treats that as "stop here, everything
// before this point is durable" rather than a hard failure.
func ReadEntry(r io.Reader) (Entry, error) {
	var head [12]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.EOF {
			return Entry{}, io.EOF
		}
		return Entry{}, ErrTornWrite
	}
	dataLen := binary.LittleEndian.Uint32(head[0:4])
	ts := binary.LittleEndian.Uint64(head[4:12])

	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return Entry{}, ErrTornWrite
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf[:])

	payload := make([]byte, dataLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Entry{}, ErrTornWrite
	}

	gotCRC := crc32.ChecksumIEEE(head[4:12])
	gotCRC = crc32.Update(gotCRC, crc32.IEEETable, payload)
	if gotCRC != wantCRC {
		return Entry{}, ErrTornWrite
	}
	return Entry{Payload: payload, Timestamp: ts}, nil
}

// ErrTornWrite signals that the next entry in the log is incomplete or
// corrupt: everything read before it is durable, everything from this
// point on is discarded.
var ErrTornWrite = fmt.Errorf("wal: torn write or corrupt entry")

// ReadAll reads every well-formed entry from path, stopping at the first
// CRC mismatch or truncated record rather than failing the whole read —
// per spec.md §4.5, "the reader stops at the first CRC mismatch and treats
// everything before it as durable."
func ReadAll(path string) (sequence uint64, entries []Entry, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	sequence, err = ReadHeader(f)
	if err != nil {
		return 0, nil, err
	}
	for {
		e, err := ReadEntry(f)
		if err == io.EOF || err == ErrTornWrite {
			return sequence, entries, nil
		}
		if err != nil {
			return sequence, entries, err
		}
		entries = append(entries, e)
	}
}
