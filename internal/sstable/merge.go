package sstable

import "bytes"

// MergeIterator performs the k-way merge that drives compaction: at each
// step it selects the smallest current key across all source iterators,
// breaking ties by recency. Callers must supply readers newest-first, the
// same order the engine maintains its table list in; the first iterator
// holding the winning key is, by construction, the newest.
type MergeIterator struct {
	iters []*Iterator

	key       []byte
	value     []byte
	tombstone bool
	valid     bool
}

// NewMergeIterator builds a MergeIterator over readers, which must be
// ordered newest-first.
func NewMergeIterator(readers []*Reader) *MergeIterator {
	iters := make([]*Iterator, len(readers))
	for i, r := range readers {
		iters[i] = r.NewIterator()
	}
	mi := &MergeIterator{iters: iters}
	mi.advance()
	return mi
}

func (mi *MergeIterator) advance() {
	var minKey []byte
	for _, it := range mi.iters {
		if !it.Valid() {
			continue
		}
		if minKey == nil || bytes.Compare(it.Key(), minKey) < 0 {
			minKey = it.Key()
		}
	}
	if minKey == nil {
		mi.valid = false
		return
	}

	won := false
	for _, it := range mi.iters {
		if it.Valid() && bytes.Equal(it.Key(), minKey) {
			if !won {
				mi.key = it.Key()
				mi.value = it.Value()
				mi.tombstone = it.Tombstone()
				won = true
			}
			it.Next()
		}
	}

	mi.valid = true
}

// Valid reports whether Key/Value/Tombstone refer to the current winning
// entry.
func (mi *MergeIterator) Valid() bool { return mi.valid }

// Next advances past the current winning key, skipping every shadowed
// copy of it in the other sources.
func (mi *MergeIterator) Next() { mi.advance() }

func (mi *MergeIterator) Key() []byte { return mi.key }

func (mi *MergeIterator) Value() []byte { return mi.value }

func (mi *MergeIterator) Tombstone() bool { return mi.tombstone }
