// Package wal implements the write-ahead log: the append-only, opcode-
// prefixed record of every mutation since the memtable was last flushed.
package wal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ninelore/emberkv/internal/codec"
	"github.com/ninelore/emberkv/internal/fsutil"
)

const (
	opSet byte = 0x01
	opDel byte = 0x02
)

// ErrUnknownOp is a corruption error: the opcode byte did not match a
// known operation.
var ErrUnknownOp = errors.New("wal: unknown opcode")

// ErrClosed is returned by any operation on a closed log.
var ErrClosed = errors.New("wal: closed")

// Mutation is one replayed WAL record.
type Mutation struct {
	Key       []byte
	Value     []byte // nil when Tombstone is true
	Tombstone bool
}

// WAL is the append-only durable mutation log for a single engine
// directory. It is not safe for concurrent use; the engine serializes all
// access per the single-writer model.
type WAL struct {
	path   string
	file   *os.File
	closed bool
}

// Open creates path if it does not exist and opens it append-only.
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %q: %w", path, err)
	}
	return &WAL{path: path, file: f}, nil
}

// Append writes a single SET record and fsyncs before returning.
func (w *WAL) Append(key, value []byte) error {
	return w.appendRecords([]Mutation{{Key: key, Value: value}})
}

// AppendDelete writes a single DEL record and fsyncs before returning.
func (w *WAL) AppendDelete(key []byte) error {
	return w.appendRecords([]Mutation{{Key: key, Tombstone: true}})
}

// AppendBatch writes every mutation back-to-back and issues a single
// fsync at the end, so the whole batch shares one durability boundary.
func (w *WAL) AppendBatch(muts []Mutation) error {
	return w.appendRecords(muts)
}

// appendRecord encodes one record in the op-prefixed WAL grammar:
// op:u8 key_len:u32 key [val_len:u32 val], the value fields present only
// for SET.
func appendRecord(dst []byte, m Mutation) ([]byte, error) {
	if m.Tombstone {
		dst = append(dst, opDel)
		var hdr [4]byte
		codec.PutUint32(hdr[:], uint32(len(m.Key)))
		dst = append(dst, hdr[:]...)
		dst = append(dst, m.Key...)
		return dst, nil
	}

	if len(m.Value) > int(codec.MaxValueLen) {
		return nil, fmt.Errorf("wal: value of %d bytes too large", len(m.Value))
	}
	dst = append(dst, opSet)
	var hdr [4]byte
	codec.PutUint32(hdr[:], uint32(len(m.Key)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, m.Key...)
	codec.PutUint32(hdr[:], uint32(len(m.Value)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, m.Value...)
	return dst, nil
}

func (w *WAL) appendRecords(muts []Mutation) error {
	if w.closed {
		return ErrClosed
	}

	var buf []byte
	for _, m := range muts {
		var err error
		buf, err = appendRecord(buf, m)
		if err != nil {
			return err
		}
	}

	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("wal: write: %w", err)
	}
	if err := fsutil.Sync(w.file); err != nil {
		return fmt.Errorf("wal: fsync: %w", err)
	}
	return nil
}

// Clear truncates the log to zero length and leaves it positioned for
// further append-only writes. Called after a successful flush.
func (w *WAL) Clear() error {
	if w.closed {
		return ErrClosed
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (w *WAL) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// Iterator yields the log's records in write order. It is finite and not
// restartable: once exhausted, or once it has returned a corruption
// error, it must be discarded.
type Iterator struct {
	r   io.Reader
	f   *os.File
	err error
}

// Iter opens a fresh read cursor over the log from the beginning. It does
// not disturb the WAL's own append position.
func (w *WAL) Iter() (*Iterator, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("wal: iter: %w", err)
	}
	return &Iterator{r: f, f: f}, nil
}

// Next decodes the next record. It returns (nil, nil) at a clean
// end-of-file, and a non-nil error — wrapping codec.ErrCorrupt or
// ErrUnknownOp — on any other failure, including a short read in the
// middle of a record.
func (it *Iterator) Next() (*Mutation, error) {
	if it.err != nil {
		return nil, it.err
	}

	var opBuf [1]byte
	if _, err := io.ReadFull(it.r, opBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		it.err = fmt.Errorf("wal: %w: reading opcode: %v", codec.ErrCorrupt, err)
		return nil, it.err
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(it.r, lenBuf[:]); err != nil {
		it.err = fmt.Errorf("wal: %w: reading key length: %v", codec.ErrCorrupt, err)
		return nil, it.err
	}
	klen := codec.Uint32(lenBuf[:])
	key := make([]byte, klen)
	if _, err := io.ReadFull(it.r, key); err != nil {
		it.err = fmt.Errorf("wal: %w: reading key: %v", codec.ErrCorrupt, err)
		return nil, it.err
	}

	switch opBuf[0] {
	case opSet:
		if _, err := io.ReadFull(it.r, lenBuf[:]); err != nil {
			it.err = fmt.Errorf("wal: %w: reading value length: %v", codec.ErrCorrupt, err)
			return nil, it.err
		}
		vlen := codec.Uint32(lenBuf[:])
		value := make([]byte, vlen)
		if _, err := io.ReadFull(it.r, value); err != nil {
			it.err = fmt.Errorf("wal: %w: reading value: %v", codec.ErrCorrupt, err)
			return nil, it.err
		}
		return &Mutation{Key: key, Value: value}, nil
	case opDel:
		return &Mutation{Key: key, Tombstone: true}, nil
	default:
		it.err = fmt.Errorf("wal: %w: %#x", ErrUnknownOp, opBuf[0])
		return nil, it.err
	}
}

// Close releases the iterator's read handle.
func (it *Iterator) Close() error {
	if it.f == nil {
		return nil
	}
	return it.f.Close()
}
