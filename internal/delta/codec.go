package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/crdt"
)

// Encode serializes d into the flat binary form the WAL and gossip
// dispatcher both carry: fixed-width fields followed by length-prefixed
// strings/byte slices, mirroring the WAL entry framing's own
// length-prefix-then-payload shape (spec.md §4.5) rather than reaching for
// a general-purpose codec for a handful of fields.
func Encode(d *Delta) []byte {
	var buf bytes.Buffer
	writeString(&buf, d.Key)
	buf.WriteByte(byte(d.Update.Kind))
	writeBytes(&buf, d.Update.Bytes)
	writeUint64(&buf, uint64(d.Update.Delta))
	writeString(&buf, d.Update.Member)
	tag, _ := d.Update.Tag.MarshalBinary()
	writeBytes(&buf, tag)
	writeUint64(&buf, uint64(d.Source))
	writeUint64(&buf, d.Ts.Time)
	writeUint64(&buf, uint64(d.Ts.ReplicaID))
	writeString(&buf, d.ID.Key)
	writeUint64(&buf, d.ID.Seq)
	writeUint64(&buf, uint64(d.ID.Origin))
	return buf.Bytes()
}

// Decode is Encode's inverse.
func Decode(b []byte) (*Delta, error) {
	r := bytes.NewReader(b)
	key, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode key: %w", err)
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("delta: decode update kind: %w", err)
	}
	updateBytes, err := readBytes(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode update bytes: %w", err)
	}
	deltaVal, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode counter delta: %w", err)
	}
	member, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode member: %w", err)
	}
	tagBytes, err := readBytes(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode tag: %w", err)
	}
	var tag crdt.UniqueTag
	if len(tagBytes) > 0 {
		if err := tag.UnmarshalBinary(tagBytes); err != nil {
			return nil, fmt.Errorf("delta: decode tag: %w", err)
		}
	}
	source, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode source: %w", err)
	}
	tsTime, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode ts time: %w", err)
	}
	tsReplica, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode ts replica: %w", err)
	}
	idKey, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode id key: %w", err)
	}
	idSeq, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode id seq: %w", err)
	}
	idOrigin, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("delta: decode id origin: %w", err)
	}

	return &Delta{
		Key: key,
		Update: crdt.Update{
			Kind:   crdt.UpdateKind(kindByte),
			Bytes:  updateBytes,
			Delta:  int64(deltaVal),
			Member: member,
			Tag:    tag,
		},
		Source: clock.ReplicaID(source),
		Ts:     clock.LamportClock{Time: tsTime, ReplicaID: clock.ReplicaID(tsReplica)},
		ID: ID{
			Key:    idKey,
			Seq:    idSeq,
			Origin: clock.ReplicaID(idOrigin),
		},
	}, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(b)))
	buf.Write(tmp[:])
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(tmp[:])
	out := make([]byte, n)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := r.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
