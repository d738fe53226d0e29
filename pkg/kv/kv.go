// Package kv is the public, string-keyed façade over the engine: a
// small embeddable key-value store backed by a write-ahead log, an
// in-memory memtable, and sealed sorted tables on disk.
package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/ninelore/emberkv/internal/engine"
)

var (
	// ErrNotFound is returned when a key is not found.
	ErrNotFound = errors.New("kv: key not found")
	// ErrClosed is returned when the DB is closed.
	ErrClosed = errors.New("kv: db is closed")
)

// DB represents a key-value database.
// It provides a simple interface for storing and retrieving key-value pairs.
type DB struct {
	eng *engine.Engine
}

// Open opens a database at the given path.
// If the database doesn't exist, it will be created.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("kv: path cannot be empty")
	}

	opts := engine.DefaultOptions()
	opts.Dir = path
	eng, err := engine.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: failed to open database: %w", err)
	}

	return &DB{eng: eng}, nil
}

// Close closes the database and releases all resources.
func (db *DB) Close() error {
	if db.eng == nil {
		return ErrClosed
	}
	err := db.eng.Close()
	db.eng = nil
	return err
}

// Put stores a key-value pair in the database.
// If the key already exists, its value will be updated.
func (db *DB) Put(key, value string) error {
	if db.eng == nil {
		return ErrClosed
	}
	if err := db.eng.Set([]byte(key), []byte(value)); err != nil {
		return fmt.Errorf("kv: put failed: %w", err)
	}
	return nil
}

// Get retrieves the value for a given key.
// Returns ErrNotFound if the key doesn't exist or was deleted.
func (db *DB) Get(key string) (string, error) {
	if db.eng == nil {
		return "", ErrClosed
	}
	val, found, err := db.eng.Get([]byte(key))
	if err != nil {
		return "", fmt.Errorf("kv: get failed: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}
	return string(val), nil
}

// GetByPrefix returns every live value whose key starts with prefix, in
// ascending key order.
func (db *DB) GetByPrefix(prefix string) ([]string, error) {
	if db.eng == nil {
		return nil, ErrClosed
	}
	vals, err := db.eng.GetByPrefix([]byte(prefix))
	if err != nil {
		return nil, fmt.Errorf("kv: get_by_prefix failed: %w", err)
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out, nil
}

// Delete removes a key from the database.
// If the key doesn't exist, it's a no-op (no error returned).
func (db *DB) Delete(key string) error {
	if db.eng == nil {
		return ErrClosed
	}
	if err := db.eng.Delete([]byte(key)); err != nil {
		return fmt.Errorf("kv: delete failed: %w", err)
	}
	return nil
}

// Flush drains the memtable into a new sealed table on disk.
func (db *DB) Flush() error {
	if db.eng == nil {
		return ErrClosed
	}
	if err := db.eng.Flush(); err != nil {
		return fmt.Errorf("kv: flush failed: %w", err)
	}
	return nil
}

// Compact merges every sealed table into one.
func (db *DB) Compact() error {
	if db.eng == nil {
		return ErrClosed
	}
	if err := db.eng.Compact(); err != nil {
		return fmt.Errorf("kv: compact failed: %w", err)
	}
	return nil
}

// CompactionPolicy controls whether and how often Compact runs
// automatically after a write.
type CompactionPolicy = engine.CompactionPolicy

// DisabledCompaction never triggers an automatic compaction.
func DisabledCompaction() CompactionPolicy {
	return engine.DisabledCompaction()
}

// PeriodicCompaction triggers a compaction after every write once at
// least interval has elapsed since the last one.
func PeriodicCompaction(interval time.Duration) CompactionPolicy {
	return engine.PeriodicCompaction(interval)
}

// SetCompactionPolicy replaces the database's compaction policy, effective
// on the next write.
func (db *DB) SetCompactionPolicy(p CompactionPolicy) error {
	if db.eng == nil {
		return ErrClosed
	}
	if err := db.eng.SetCompactionPolicy(p); err != nil {
		return fmt.Errorf("kv: set_compaction_policy failed: %w", err)
	}
	return nil
}
