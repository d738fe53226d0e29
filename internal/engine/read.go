package engine

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/ninelore/emberkv/internal/memtable"
	"github.com/ninelore/emberkv/internal/sstable"
)

// Get returns key's live value and true, or (nil, false) if it is absent
// or tombstoned. The memtable is consulted first; on a miss, the sealed
// tables are walked newest to oldest, stopping at the first table that
// reports the key found or deleted. A table that fails to read is
// skipped and logged — lossy but available, per spec.md §7 and §9.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	if e.closed {
		return nil, false, ErrClosed
	}

	if v, status := e.mem.Get(key); status != memtable.Absent {
		if status == memtable.Live {
			return v, true, nil
		}
		return nil, false, nil // Deleted
	}

	for _, t := range e.tables {
		v, result, err := t.Get(key)
		if err != nil {
			e.logger.Printf("engine: table %s: read error, skipping: %v", t.Path(), err)
			continue
		}
		switch result {
		case sstable.Found:
			return v, true, nil
		case sstable.Deleted:
			return nil, false, nil
		case sstable.NotFound:
			continue
		}
	}
	return nil, false, nil
}

// prefixUpperBound returns prefix with the maximum Unicode code point
// appended, an upper bound that lexically succeeds any string beginning
// with prefix.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, 0, len(prefix)+utf8.UTFMax)
	upper = append(upper, prefix...)
	upper = utf8.AppendRune(upper, utf8.MaxRune)
	return upper
}

// GetByPrefix returns every live value whose key starts with prefix, in
// ascending key order. Sealed tables are scanned oldest to newest so
// newer table entries overwrite older ones in the accumulator; the
// memtable is then overlaid on top, since it always holds the most
// recent mutations.
func (e *Engine) GetByPrefix(prefix []byte) ([][]byte, error) {
	if e.closed {
		return nil, ErrClosed
	}

	type slot struct {
		value     []byte
		tombstone bool
	}
	acc := make(map[string]slot)
	end := prefixUpperBound(prefix)

	for i := len(e.tables) - 1; i >= 0; i-- {
		t := e.tables[i]
		kvs, err := t.Scan(prefix, end)
		if err != nil {
			e.logger.Printf("engine: table %s: scan error, skipping: %v", t.Path(), err)
			continue
		}
		for _, kv := range kvs {
			acc[string(kv.Key)] = slot{value: kv.Value}
		}
	}

	for it := e.mem.Iter(); it.Valid(); it.Next() {
		k := it.Key()
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		if it.Tombstone() {
			acc[string(k)] = slot{tombstone: true}
		} else {
			acc[string(k)] = slot{value: it.Value()}
		}
	}

	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		s := acc[k]
		if s.tombstone {
			continue
		}
		out = append(out, s.value)
	}
	return out, nil
}
