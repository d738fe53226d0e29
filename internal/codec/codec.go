// Package codec implements the length-prefixed entry framing shared by the
// write-ahead log and the sorted table format: a little-endian key length,
// the key bytes, and either a value length followed by the value bytes or
// the Tombstone sentinel in place of a value length.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Tombstone is the value-length sentinel marking a deletion. No real value
// can be exactly this long, so it is unambiguous in the length field.
const Tombstone uint32 = 0xFFFFFFFF

// MaxValueLen is the largest representable value length; values of exactly
// 4 GiB-1 bytes would collide with the Tombstone sentinel and are rejected.
const MaxValueLen = uint32(0xFFFFFFFF - 1)

// ErrCorrupt indicates a record could not be decoded because a read came
// up short in the middle of the record.
var ErrCorrupt = errors.New("codec: corrupt record")

// PutUint32 writes a 4-byte little-endian integer (a key/value length
// field or similar) into the first four bytes of buf.
func PutUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// PutUint64 writes an 8-byte little-endian integer into the first eight
// bytes of buf, used for the SST footer and index block offsets.
func PutUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

// Uint32 decodes a 4-byte little-endian integer.
func Uint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// Uint64 decodes an 8-byte little-endian integer.
func Uint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// AppendEntry appends a live (key, value) record in the block-entry
// grammar: key_len:u32 key val_len:u32 val. It is used for SST data
// blocks; the WAL writes the same layout after its opcode byte with its
// own encoder.
func AppendEntry(dst []byte, key, value []byte) ([]byte, error) {
	if len(value) > int(MaxValueLen) {
		return nil, fmt.Errorf("codec: value of %d bytes collides with tombstone sentinel", len(value))
	}
	var hdr [4]byte
	PutUint32(hdr[:], uint32(len(key)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, key...)
	PutUint32(hdr[:], uint32(len(value)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, value...)
	return dst, nil
}

// AppendTombstone appends a deletion marker: key_len:u32 key TOMBSTONE:u32.
func AppendTombstone(dst []byte, key []byte) []byte {
	var hdr [4]byte
	PutUint32(hdr[:], uint32(len(key)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, key...)
	PutUint32(hdr[:], Tombstone)
	dst = append(dst, hdr[:]...)
	return dst
}

// EntrySize returns the encoded size of a live entry without allocating.
func EntrySize(key, value []byte) int {
	return 4 + len(key) + 4 + len(value)
}

// TombstoneSize returns the encoded size of a tombstone record.
func TombstoneSize(key []byte) int {
	return 4 + len(key) + 4
}

// Record is one decoded (key, value-or-tombstone) pair.
type Record struct {
	Key       []byte
	Value     []byte // nil when Tombstone is true
	Tombstone bool
}

// ReadEntry decodes one record from r in the block-entry grammar (no
// opcode byte). It returns io.EOF only when r is exhausted exactly at a
// record boundary; any other short read is reported as ErrCorrupt.
func ReadEntry(r io.Reader) (Record, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: reading key length: %v", ErrCorrupt, err)
	}
	klen := Uint32(lenBuf[:])

	key := make([]byte, klen)
	if _, err := io.ReadFull(r, key); err != nil {
		return Record{}, fmt.Errorf("%w: reading key: %v", ErrCorrupt, err)
	}

	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Record{}, fmt.Errorf("%w: reading value marker: %v", ErrCorrupt, err)
	}
	marker := Uint32(lenBuf[:])

	if marker == Tombstone {
		return Record{Key: key, Tombstone: true}, nil
	}

	value := make([]byte, marker)
	if _, err := io.ReadFull(r, value); err != nil {
		return Record{}, fmt.Errorf("%w: reading value: %v", ErrCorrupt, err)
	}

	return Record{Key: key, Value: value}, nil
}
