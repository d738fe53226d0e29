package sstable

import (
	"fmt"
	"os"

	"github.com/ninelore/emberkv/internal/codec"
	"github.com/ninelore/emberkv/internal/fsutil"
)

// Builder packs a key-ordered stream of (key, value-or-tombstone) entries
// into fixed-target-size blocks, then writes a sparse index and footer.
// The caller must feed keys in strictly ascending order; Builder does not
// check this (see the spec's invariant-violation error kind).
type Builder struct {
	f             *os.File
	path          string
	blockBuf      []byte
	blockFirstKey []byte
	offset        int64
	index         []indexEntry
	finished      bool
}

// NewBuilder creates (or truncates) path and returns a Builder writing to
// it.
func NewBuilder(path string) (*Builder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sstable: create %q: %w", path, err)
	}
	return &Builder{f: f, path: path}, nil
}

// Add appends a live entry to the current block buffer.
func (b *Builder) Add(key, value []byte) error {
	if b.finished {
		return ErrFinished
	}
	encoded, err := codec.AppendEntry(nil, key, value)
	if err != nil {
		return fmt.Errorf("sstable: %w", err)
	}
	return b.appendEncoded(key, encoded)
}

// Delete appends a tombstone to the current block buffer.
func (b *Builder) Delete(key []byte) error {
	if b.finished {
		return ErrFinished
	}
	encoded := codec.AppendTombstone(nil, key)
	return b.appendEncoded(key, encoded)
}

func (b *Builder) appendEncoded(key, encoded []byte) error {
	if len(b.blockBuf) > 0 && len(b.blockBuf)+len(encoded) > BlockSize {
		if err := b.flushBlock(); err != nil {
			return err
		}
	}
	if len(b.blockBuf) == 0 {
		b.blockFirstKey = cloneBytes(key)
	}
	b.blockBuf = append(b.blockBuf, encoded...)
	return nil
}

// flushBlock records the block's index entry, writes it, and advances the
// file offset. A no-op on an empty buffer.
func (b *Builder) flushBlock() error {
	if len(b.blockBuf) == 0 {
		return nil
	}
	b.index = append(b.index, indexEntry{key: b.blockFirstKey, offset: b.offset})
	n, err := b.f.Write(b.blockBuf)
	if err != nil {
		return fmt.Errorf("sstable: write block: %w", err)
	}
	b.offset += int64(n)
	b.blockBuf = b.blockBuf[:0]
	b.blockFirstKey = nil
	return nil
}

// Finish flushes any residual block, writes the index region and footer,
// fsyncs, and closes the file. After Finish the builder is consumed.
func (b *Builder) Finish() error {
	if b.finished {
		return ErrFinished
	}
	if err := b.flushBlock(); err != nil {
		return err
	}

	indexStart := b.offset
	var idxBuf []byte
	for _, e := range b.index {
		var hdr [4]byte
		codec.PutUint32(hdr[:], uint32(len(e.key)))
		idxBuf = append(idxBuf, hdr[:]...)
		idxBuf = append(idxBuf, e.key...)
		var off [8]byte
		codec.PutUint64(off[:], uint64(e.offset))
		idxBuf = append(idxBuf, off[:]...)
	}
	if _, err := b.f.Write(idxBuf); err != nil {
		return fmt.Errorf("sstable: write index: %w", err)
	}

	var footer [FooterSize]byte
	codec.PutUint64(footer[:], uint64(indexStart))
	if _, err := b.f.Write(footer[:]); err != nil {
		return fmt.Errorf("sstable: write footer: %w", err)
	}

	if err := fsutil.Sync(b.f); err != nil {
		return fmt.Errorf("sstable: fsync: %w", err)
	}
	b.finished = true
	return b.f.Close()
}

// Abandon closes the underlying file without finishing it, for callers
// that must bail out of an in-progress build (e.g. a failed flush).
func (b *Builder) Abandon() error {
	if b.finished {
		return nil
	}
	return b.f.Close()
}
