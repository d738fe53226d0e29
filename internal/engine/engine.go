// Package engine orchestrates the write path, read path, recovery,
// flush, and compaction, owning the WAL, the memtable, and the sealed
// table readers. Usage is single-writer and single-threaded
// cooperative: the engine has no internal locking and assumes no two
// operations overlap in time.
package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ninelore/emberkv/internal/memtable"
	"github.com/ninelore/emberkv/internal/sstable"
	"github.com/ninelore/emberkv/internal/wal"
)

// Engine is an open LSM store rooted at a single directory. It owns its
// memtable, its WAL, and every sealed table reader exclusively.
type Engine struct {
	opts Options

	wal    *wal.WAL
	mem    *memtable.Memtable
	tables []*sstable.Reader // newest-first

	lastCompaction time.Time
	closed         bool
	logger         *log.Logger
}

// Mutation is one entry of a BatchSet call: a live (Key, Value) or, with
// Tombstone set, a deletion.
type Mutation struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

// Open opens (or creates) the engine rooted at opts.Dir. If the
// directory is absent, this is equivalent to creating a brand-new store.
// If it exists, the WAL (if non-empty) is replayed into a fresh
// memtable and every *.sst file found is opened for reading, newest
// first.
func Open(opts Options) (*Engine, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("%w: dir is empty", ErrInvalidOptions)
	}
	opts = withDefaults(opts)
	if opts.BlockSize != sstable.BlockSize {
		return nil, fmt.Errorf("%w: block size %d does not match the fixed on-disk format (%d)",
			ErrInvalidOptions, opts.BlockSize, sstable.BlockSize)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create dir %q: %w", opts.Dir, err)
	}

	w, err := wal.Open(filepath.Join(opts.Dir, walFilename))
	if err != nil {
		return nil, fmt.Errorf("engine: open wal: %w", err)
	}

	mem := memtable.New()
	recovered, stoppedEarly, err := replayWAL(w, mem, opts.Logger)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("engine: wal replay: %w", err)
	}
	opts.Logger.Printf("engine: wal replay recovered %d record(s), stopped early at corruption=%v", recovered, stoppedEarly)

	names, err := scanTableNames(opts.Dir)
	if err != nil {
		w.Close()
		return nil, err
	}
	tables := make([]*sstable.Reader, 0, len(names))
	for _, name := range names {
		r, err := sstable.NewReader(filepath.Join(opts.Dir, name))
		if err != nil {
			for _, t := range tables {
				t.Close()
			}
			w.Close()
			return nil, fmt.Errorf("engine: open table %q: %w", name, err)
		}
		tables = append(tables, r)
	}

	return &Engine{
		opts:           opts,
		wal:            w,
		mem:            mem,
		tables:         tables,
		lastCompaction: time.Now(),
		logger:         opts.Logger,
	}, nil
}

// replayWAL applies every record of w into mem in order. A malformed
// record stops replay there, keeping every prior record applied — a
// tail-lossy recovery rather than a failure, per spec.md §7.
func replayWAL(w *wal.WAL, mem *memtable.Memtable, logger *log.Logger) (recovered int, stoppedEarly bool, err error) {
	it, err := w.Iter()
	if err != nil {
		return 0, false, err
	}
	defer it.Close()

	for {
		m, err := it.Next()
		if err != nil {
			logger.Printf("engine: wal replay: stopping after %d record(s), malformed record: %v", recovered, err)
			return recovered, true, nil
		}
		if m == nil {
			return recovered, false, nil
		}
		if m.Tombstone {
			mem.Delete(m.Key)
		} else {
			mem.Set(m.Key, m.Value)
		}
		recovered++
	}
}

// Close releases every open file handle. It does not flush: the
// memtable is already durable in the WAL.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	if err := e.wal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, t := range e.tables {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len reports the number of sealed (flushed or compacted) tables
// currently open.
func (e *Engine) Len() int {
	return len(e.tables)
}

// SizeOnDisk reports the total byte size of every sealed table file.
func (e *Engine) SizeOnDisk() (int64, error) {
	var total int64
	for _, t := range e.tables {
		info, err := os.Stat(t.Path())
		if err != nil {
			return 0, fmt.Errorf("engine: stat %q: %w", t.Path(), err)
		}
		total += info.Size()
	}
	return total, nil
}
