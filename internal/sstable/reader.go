package sstable

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ninelore/emberkv/internal/codec"
)

// Reader opens an immutable sorted table for point lookups, range scans,
// and full iteration. It owns its file handle exclusively.
type Reader struct {
	f          *os.File
	path       string
	index      []indexEntry // ascending by key
	indexStart int64
}

// NewReader opens path, reads its footer and index region into memory,
// and returns a Reader ready for lookups.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %q: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: stat %q: %w", path, err)
	}
	size := stat.Size()
	if size < FooterSize {
		f.Close()
		return nil, fmt.Errorf("sstable: %q: %w", path, ErrTooSmall)
	}

	var footer [FooterSize]byte
	if _, err := f.ReadAt(footer[:], size-FooterSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: read footer %q: %w", path, err)
	}
	indexStart := int64(codec.Uint64(footer[:]))
	if indexStart < 0 || indexStart > size-FooterSize {
		f.Close()
		return nil, fmt.Errorf("sstable: %q: %w: index offset %d out of range", path, codec.ErrCorrupt, indexStart)
	}

	indexLen := size - FooterSize - indexStart
	idxBuf := make([]byte, indexLen)
	if indexLen > 0 {
		if _, err := f.ReadAt(idxBuf, indexStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("sstable: read index %q: %w", path, err)
		}
	}

	index, err := parseIndex(idxBuf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: %q: %w", path, err)
	}

	return &Reader{f: f, path: path, index: index, indexStart: indexStart}, nil
}

func parseIndex(buf []byte) ([]indexEntry, error) {
	var entries []indexEntry
	for len(buf) > 0 {
		if len(buf) < 4 {
			return nil, fmt.Errorf("%w: truncated index entry", codec.ErrCorrupt)
		}
		klen := codec.Uint32(buf[:4])
		buf = buf[4:]
		if uint64(len(buf)) < uint64(klen)+8 {
			return nil, fmt.Errorf("%w: truncated index entry", codec.ErrCorrupt)
		}
		key := buf[:klen]
		buf = buf[klen:]
		offset := codec.Uint64(buf[:8])
		buf = buf[8:]
		entries = append(entries, indexEntry{key: cloneBytes(key), offset: int64(offset)})
	}
	return entries, nil
}

// Path returns the table's file path.
func (r *Reader) Path() string { return r.path }

// Close releases the reader's file handle.
func (r *Reader) Close() error { return r.f.Close() }

// blockOffsetFor returns the start offset of the block that would contain
// key: the greatest index entry whose key is <= key. ok is false if key
// precedes every block's first key.
func (r *Reader) blockOffsetFor(key []byte) (offset int64, ok bool) {
	i := sort.Search(len(r.index), func(i int) bool {
		return bytes.Compare(r.index[i].key, key) > 0
	})
	if i == 0 {
		return 0, false
	}
	return r.index[i-1].offset, true
}

// Get performs a point lookup, per the spec's three-state contract.
func (r *Reader) Get(key []byte) (value []byte, result Lookup, err error) {
	offset, ok := r.blockOffsetFor(key)
	if !ok {
		return nil, NotFound, nil
	}

	sr := io.NewSectionReader(r.f, offset, r.indexStart-offset)
	for {
		rec, err := codec.ReadEntry(sr)
		if err == io.EOF {
			return nil, NotFound, nil
		}
		if err != nil {
			return nil, NotFound, fmt.Errorf("sstable: %q: %w", r.path, err)
		}
		cmp := bytes.Compare(rec.Key, key)
		if cmp == 0 {
			if rec.Tombstone {
				return nil, Deleted, nil
			}
			return rec.Value, Found, nil
		}
		if cmp > 0 {
			return nil, NotFound, nil
		}
	}
}

// KV is a decoded live (key, value) pair returned by Scan.
type KV struct {
	Key   []byte
	Value []byte
}

// Scan returns all live entries with start <= key <= end, in ascending key
// order, skipping tombstones.
func (r *Reader) Scan(start, end []byte) ([]KV, error) {
	offset, ok := r.blockOffsetFor(start)
	if !ok {
		offset = 0
	}

	var out []KV
	sr := io.NewSectionReader(r.f, offset, r.indexStart-offset)
	for {
		rec, err := codec.ReadEntry(sr)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("sstable: %q: %w", r.path, err)
		}
		if bytes.Compare(rec.Key, end) > 0 {
			return out, nil
		}
		if !rec.Tombstone && bytes.Compare(rec.Key, start) >= 0 {
			out = append(out, KV{Key: rec.Key, Value: rec.Value})
		}
	}
}

// Iterator yields the full (key, value-or-tombstone) stream of a table in
// key order, from the start of the data region to the index. It is the
// merge input for compaction.
type Iterator struct {
	sr    *io.SectionReader
	rec   codec.Record
	valid bool
	err   error
}

// NewIterator returns an Iterator over the table's entire data region.
func (r *Reader) NewIterator() *Iterator {
	it := &Iterator{sr: io.NewSectionReader(r.f, 0, r.indexStart)}
	it.advance()
	return it
}

func (it *Iterator) advance() {
	if it.err != nil {
		it.valid = false
		return
	}
	rec, err := codec.ReadEntry(it.sr)
	if err == io.EOF {
		it.valid = false
		return
	}
	if err != nil {
		it.err = err
		it.valid = false
		return
	}
	it.rec = rec
	it.valid = true
}

// Valid reports whether Key/Value/Tombstone refer to a current entry
// (live or tombstone).
func (it *Iterator) Valid() bool { return it.valid }

// Err returns the first decode error encountered, if any.
func (it *Iterator) Err() error { return it.err }

// Next advances to the following entry.
func (it *Iterator) Next() { it.advance() }

func (it *Iterator) Key() []byte { return it.rec.Key }

func (it *Iterator) Value() []byte { return it.rec.Value }

func (it *Iterator) Tombstone() bool { return it.rec.Tombstone }
