// Package config loads engine.Options from a human-editable JSON-with-
// comments file, for processes (such as cmd/demo) that embed the engine
// and want a persisted options file rather than wiring everything
// through flags. This is tooling for the process that embeds the
// engine, not part of the engine's own library surface.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"

	"github.com/ninelore/emberkv/internal/engine"
)

// ErrDirRequired indicates the options file omitted the required "dir"
// field.
var ErrDirRequired = errors.New("config: \"dir\" is required")

// ErrIntervalRequired indicates compaction_policy was "periodic" without
// a compaction_interval.
var ErrIntervalRequired = errors.New("config: \"compaction_interval\" is required when compaction_policy is \"periodic\"")

// ErrUnknownPolicy indicates an unrecognized compaction_policy value.
var ErrUnknownPolicy = errors.New("config: unknown compaction_policy")

// fileOptions mirrors the on-disk shape of an options file.
type fileOptions struct {
	Dir                string `json:"dir"`
	MemtableThreshold  int    `json:"memtable_threshold,omitempty"` //nolint:tagliatelle
	CompactionPolicy   string `json:"compaction_policy,omitempty"`  //nolint:tagliatelle
	CompactionInterval string `json:"compaction_interval,omitempty"`
}

// Load reads path as JSONC (JSON with comments and trailing commas, via
// tailscale/hujson) and returns the engine.Options it describes, with
// every field defaulted from engine.DefaultOptions except Dir, which is
// required.
func Load(path string) (engine.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Options{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return engine.Options{}, fmt.Errorf("config: %q: invalid jsonc: %w", path, err)
	}

	var fo fileOptions
	if err := json.Unmarshal(standardized, &fo); err != nil {
		return engine.Options{}, fmt.Errorf("config: %q: invalid json: %w", path, err)
	}

	if fo.Dir == "" {
		return engine.Options{}, fmt.Errorf("config: %q: %w", path, ErrDirRequired)
	}

	opts := engine.DefaultOptions()
	opts.Dir = fo.Dir
	if fo.MemtableThreshold > 0 {
		opts.MemtableThreshold = fo.MemtableThreshold
	}

	policy, err := parseCompactionPolicy(fo)
	if err != nil {
		return engine.Options{}, fmt.Errorf("config: %q: %w", path, err)
	}
	opts.CompactionPolicy = policy

	return opts, nil
}

func parseCompactionPolicy(fo fileOptions) (engine.CompactionPolicy, error) {
	switch fo.CompactionPolicy {
	case "", "disabled":
		return engine.DisabledCompaction(), nil
	case "periodic":
		if fo.CompactionInterval == "" {
			return engine.CompactionPolicy{}, ErrIntervalRequired
		}
		d, err := time.ParseDuration(fo.CompactionInterval)
		if err != nil {
			return engine.CompactionPolicy{}, fmt.Errorf("invalid compaction_interval: %w", err)
		}
		return engine.PeriodicCompaction(d), nil
	default:
		return engine.CompactionPolicy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, fo.CompactionPolicy)
	}
}
