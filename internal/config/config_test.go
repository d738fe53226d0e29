package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emberkv.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	path := writeConfig(t, `{
		// only dir is required
		"dir": "/tmp/emberkv-data",
	}`)

	opts, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/emberkv-data", opts.Dir)
	require.True(t, opts.CompactionPolicy.Disabled())
}

func TestLoadPeriodicCompaction(t *testing.T) {
	path := writeConfig(t, `{
		"dir": "/tmp/emberkv-data",
		"memtable_threshold": 1048576,
		"compaction_policy": "periodic",
		"compaction_interval": "5m",
	}`)

	opts, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1048576, opts.MemtableThreshold)
	require.False(t, opts.CompactionPolicy.Disabled())
}

func TestLoadPeriodicWithoutIntervalFails(t *testing.T) {
	path := writeConfig(t, `{"dir": "/tmp/x", "compaction_policy": "periodic"}`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrIntervalRequired)
}

func TestLoadMissingDirFails(t *testing.T) {
	path := writeConfig(t, `{"memtable_threshold": 4096}`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrDirRequired)
}

func TestLoadUnknownPolicyFails(t *testing.T) {
	path := writeConfig(t, `{"dir": "/tmp/x", "compaction_policy": "eventually"}`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.jsonc"))
	require.Error(t, err)
}
