package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/ninelore/emberkv/internal/sstable"
)

// compact flushes any pending memtable contents, then merges every
// sealed table into a single new one via a k-way merge that resolves
// key ties by recency (the newest table wins), drops tombstones (there
// are no older surviving tables left to shadow), deletes every input
// file only after the merged table is durable, and replaces the table
// list with the single merged reader.
func (e *Engine) compact() error {
	if err := e.flush(); err != nil {
		return err
	}
	if len(e.tables) == 0 {
		e.lastCompaction = time.Now()
		return nil
	}

	inputs := e.tables
	e.tables = nil

	path := newCompactedName(e.opts.Dir)
	b, err := sstable.NewBuilder(path)
	if err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	mi := sstable.NewMergeIterator(inputs)
	for mi.Valid() {
		if !mi.Tombstone() {
			if err := b.Add(mi.Key(), mi.Value()); err != nil {
				b.Abandon()
				return fmt.Errorf("engine: compact: %w", err)
			}
		}
		mi.Next()
	}

	if err := b.Finish(); err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	oldPaths := make([]string, len(inputs))
	for i, t := range inputs {
		oldPaths[i] = t.Path()
		t.Close()
	}
	for _, p := range oldPaths {
		if err := os.Remove(p); err != nil {
			e.logger.Printf("engine: compact: failed to remove old table %s: %v", p, err)
		}
	}

	r, err := sstable.NewReader(path)
	if err != nil {
		return fmt.Errorf("engine: compact: open merged table: %w", err)
	}
	e.tables = []*sstable.Reader{r}
	e.lastCompaction = time.Now()

	e.logger.Printf("engine: compact: merged %d table(s) into %s", len(inputs), path)
	return nil
}

// Compact exposes compact() on the public engine surface.
func (e *Engine) Compact() error {
	if e.closed {
		return ErrClosed
	}
	return e.compact()
}
