package engine

import (
	"io"
	"log"
	"time"

	"github.com/ninelore/emberkv/internal/sstable"
)

// compactionKind distinguishes the two compaction policies spec.md names:
// Disabled and Periodic(duration).
type compactionKind int

const (
	compactionDisabled compactionKind = iota
	compactionPeriodic
)

// CompactionPolicy controls whether and how often compact() runs
// automatically after a write. The zero value is Disabled.
type CompactionPolicy struct {
	kind     compactionKind
	interval time.Duration
}

// DisabledCompaction never triggers an automatic compaction.
func DisabledCompaction() CompactionPolicy {
	return CompactionPolicy{kind: compactionDisabled}
}

// PeriodicCompaction triggers a compaction after every write once at
// least interval has elapsed since the last one.
func PeriodicCompaction(interval time.Duration) CompactionPolicy {
	return CompactionPolicy{kind: compactionPeriodic, interval: interval}
}

// Disabled reports whether the policy is CompactionPolicy's zero value:
// automatic compaction never triggers.
func (p CompactionPolicy) Disabled() bool {
	return p.kind == compactionDisabled
}

// SetCompactionPolicy replaces the engine's compaction policy, effective
// immediately on the next write. It does not itself trigger a compaction.
func (e *Engine) SetCompactionPolicy(p CompactionPolicy) error {
	if e.closed {
		return ErrClosed
	}
	e.opts.CompactionPolicy = p
	return nil
}

// DefaultMemtableThreshold is spec.md's MEMTABLE_THRESHOLD: the memtable
// size, in bytes, that triggers an automatic flush.
const DefaultMemtableThreshold = 4 * 1024 * 1024

// Options configures an Engine. DefaultOptions fills in the spec's
// constants; callers only need to set Dir.
type Options struct {
	// Dir is the engine's root directory, holding the WAL and every
	// sealed table.
	Dir string

	// BlockSize must equal sstable.BlockSize; the wire format is pinned
	// and not actually configurable. The field exists so Options mirrors
	// the shape callers expect from an options struct, and so Open can
	// reject a caller that passes something other than the one supported
	// value instead of silently ignoring it.
	BlockSize int

	// MemtableThreshold is the live-byte size at which a write triggers
	// an automatic flush.
	MemtableThreshold int

	// CompactionPolicy controls automatic compaction after writes.
	CompactionPolicy CompactionPolicy

	// Logger receives recovery, flush, compaction, and read-path
	// diagnostic messages. Defaults to a discarding logger: the engine
	// is a library and does not log by default.
	Logger *log.Logger
}

// DefaultOptions returns Options with Dir unset and every other field
// filled in from spec.md's constants.
func DefaultOptions() Options {
	return Options{
		BlockSize:         sstable.BlockSize,
		MemtableThreshold: DefaultMemtableThreshold,
		CompactionPolicy:  DisabledCompaction(),
		Logger:            log.New(io.Discard, "", 0),
	}
}

// withDefaults fills any zero-valued field of opts from DefaultOptions,
// leaving Dir and any explicitly set field untouched.
func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.BlockSize == 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.MemtableThreshold == 0 {
		opts.MemtableThreshold = def.MemtableThreshold
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	return opts
}
