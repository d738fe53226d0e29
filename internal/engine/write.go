package engine

import (
	"fmt"
	"time"

	"github.com/ninelore/emberkv/internal/codec"
	"github.com/ninelore/emberkv/internal/wal"
)

// Set inserts or replaces key's value: WAL-append-and-fsync, then
// memtable-insert, then a threshold/compaction check. The WAL write is
// visible on stable storage before the memtable mutation is observable
// to any subsequent call.
func (e *Engine) Set(key, value []byte) error {
	if e.closed {
		return ErrClosed
	}
	if len(value) > int(codec.MaxValueLen) {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	if err := e.wal.Append(key, value); err != nil {
		return fmt.Errorf("engine: set: %w", err)
	}
	e.mem.Set(key, value)
	return e.maybeFlushAndCompact()
}

// Delete inserts a tombstone for key through the same WAL-then-memtable
// pipeline as Set.
func (e *Engine) Delete(key []byte) error {
	if e.closed {
		return ErrClosed
	}
	if err := e.wal.AppendDelete(key); err != nil {
		return fmt.Errorf("engine: delete: %w", err)
	}
	e.mem.Delete(key)
	return e.maybeFlushAndCompact()
}

// BatchSet applies every mutation with one WAL fsync for the whole
// batch, then memtable insertions in order, then a single
// threshold/compaction check. Every entry is validated before any of
// them is written: applied reports how many were written (0 if
// validation rejected the batch), and a validation failure names the
// index of the first bad entry so the caller can report it without
// guessing which one failed.
func (e *Engine) BatchSet(muts []Mutation) (applied int, err error) {
	if e.closed {
		return 0, ErrClosed
	}
	if len(muts) == 0 {
		return 0, nil
	}

	walMuts := make([]wal.Mutation, len(muts))
	for i, m := range muts {
		if !m.Tombstone && len(m.Value) > int(codec.MaxValueLen) {
			return 0, fmt.Errorf("engine: batch entry %d: %w: %d bytes", i, ErrValueTooLarge, len(m.Value))
		}
		walMuts[i] = wal.Mutation{Key: m.Key, Value: m.Value, Tombstone: m.Tombstone}
	}

	if err := e.wal.AppendBatch(walMuts); err != nil {
		return 0, fmt.Errorf("engine: batch_set: %w", err)
	}
	for _, m := range muts {
		if m.Tombstone {
			e.mem.Delete(m.Key)
		} else {
			e.mem.Set(m.Key, m.Value)
		}
	}
	applied = len(muts)

	if err := e.maybeFlushAndCompact(); err != nil {
		return applied, err
	}
	return applied, nil
}

// maybeFlushAndCompact flushes the memtable if it has crossed its
// threshold, then considers a periodic compaction. Both checks happen
// after every write, per spec.md §4.6.
func (e *Engine) maybeFlushAndCompact() error {
	if e.mem.SizeBytes() >= e.opts.MemtableThreshold {
		if err := e.flush(); err != nil {
			return err
		}
	}
	if e.opts.CompactionPolicy.kind == compactionPeriodic &&
		time.Since(e.lastCompaction) >= e.opts.CompactionPolicy.interval {
		if err := e.compact(); err != nil {
			return err
		}
	}
	return nil
}
