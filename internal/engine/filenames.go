package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	walFilename   = "wal.log"
	sstSuffix     = ".sst"
	flushPrefix   = "sstable_"
	compactPrefix = "sstable_compacted_"
)

// newFlushName returns a fresh flush table filename carrying the current
// wall-clock microsecond timestamp, the table's sole recency signal.
func newFlushName(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d%s", flushPrefix, time.Now().UnixMicro(), sstSuffix))
}

// newCompactedName returns a fresh compacted table filename.
func newCompactedName(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d%s", compactPrefix, time.Now().UnixMicro(), sstSuffix))
}

// scanTableNames lists every *.sst file directly under dir, sorted in
// descending lexicographic order so that the newest-timestamped table is
// first. Only the .sst extension is recognized; everything else
// (including the WAL) is ignored.
func scanTableNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: scan %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), sstSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
