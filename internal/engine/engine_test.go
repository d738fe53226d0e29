package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, dir string) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Dir = dir
	e, err := Open(opts)
	require.NoError(t, err)
	return e
}

func mustGet(t *testing.T, e *Engine, key string) (string, bool) {
	t.Helper()
	v, ok, err := e.Get([]byte(key))
	require.NoError(t, err)
	if !ok {
		return "", false
	}
	return string(v), true
}

// TestBasicRoundTrip is the literal S1 scenario.
func TestBasicRoundTrip(t *testing.T) {
	e := openTest(t, t.TempDir())
	defer e.Close()

	require.NoError(t, e.Set([]byte("key1"), []byte("val1")))
	require.NoError(t, e.Set([]byte("key2"), []byte("val2")))

	v, ok := mustGet(t, e, "key1")
	require.True(t, ok)
	require.Equal(t, "val1", v)

	require.NoError(t, e.Delete([]byte("key1")))
	_, ok = mustGet(t, e, "key1")
	require.False(t, ok)

	v, ok = mustGet(t, e, "key2")
	require.True(t, ok)
	require.Equal(t, "val2", v)
}

// TestPersistenceAcrossReopen is the literal S2 scenario.
func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	require.NoError(t, e.Set([]byte("k"), []byte("v")))
	require.NoError(t, e.Close())

	e2 := openTest(t, dir)
	defer e2.Close()
	v, ok := mustGet(t, e2, "k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

// TestTombstoneAcrossTables is the literal S3 scenario.
func TestTombstoneAcrossTables(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	defer e.Close()

	require.NoError(t, e.Set([]byte("a"), []byte("1")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Delete([]byte("a")))
	require.NoError(t, e.Flush())

	_, ok := mustGet(t, e, "a")
	require.False(t, ok)

	require.NoError(t, e.Compact())
	_, ok = mustGet(t, e, "a")
	require.False(t, ok)

	names, err := scanTableNames(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
}

// TestUpdateAcrossFlushes is the literal S4 scenario.
func TestUpdateAcrossFlushes(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	defer e.Close()

	require.NoError(t, e.Set([]byte("k"), []byte("v1")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Set([]byte("k"), []byte("v2")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Set([]byte("j"), []byte("w")))
	require.NoError(t, e.Flush())

	names, err := scanTableNames(dir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(names), 3)

	v, ok := mustGet(t, e, "k")
	require.True(t, ok)
	require.Equal(t, "v2", v)

	require.NoError(t, e.Compact())
	names, err = scanTableNames(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)

	v, ok = mustGet(t, e, "k")
	require.True(t, ok)
	require.Equal(t, "v2", v)
	v, ok = mustGet(t, e, "j")
	require.True(t, ok)
	require.Equal(t, "w", v)
}

// TestPrefixScanAcrossTiers is the literal S6 scenario.
func TestPrefixScanAcrossTiers(t *testing.T) {
	e := openTest(t, t.TempDir())
	defer e.Close()

	require.NoError(t, e.Set([]byte("ab"), []byte("1")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Set([]byte("ac"), []byte("2")))
	require.NoError(t, e.Set([]byte("ad"), []byte("3")))
	require.NoError(t, e.Delete([]byte("ab")))

	got, err := e.GetByPrefix([]byte("a"))
	require.NoError(t, err)

	var gotStrs []string
	for _, v := range got {
		gotStrs = append(gotStrs, string(v))
	}
	if diff := cmp.Diff([]string{"2", "3"}, gotStrs); diff != "" {
		t.Fatalf("GetByPrefix mismatch (-want +got):\n%s", diff)
	}
}

func TestFlushIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	defer e.Close()

	require.NoError(t, e.Set([]byte("k"), []byte("v")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Flush())

	v, ok := mustGet(t, e, "k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	names, err := scanTableNames(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestBatchSetAppliesInOrderWithSingleFsync(t *testing.T) {
	e := openTest(t, t.TempDir())
	defer e.Close()

	applied, err := e.BatchSet([]Mutation{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("a"), Value: []byte("2")},
		{Key: []byte("b"), Tombstone: true},
	})
	require.NoError(t, err)
	require.Equal(t, 3, applied)

	v, ok := mustGet(t, e, "a")
	require.True(t, ok)
	require.Equal(t, "2", v)
	_, ok = mustGet(t, e, "b")
	require.False(t, ok)
}

func TestWALReplayRecoversUncommittedMutations(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	require.NoError(t, e.Set([]byte("x"), []byte("1")))
	require.NoError(t, e.Set([]byte("y"), []byte("2")))
	require.NoError(t, e.Delete([]byte("x")))
	require.NoError(t, e.wal.Close())

	e2 := openTest(t, dir)
	defer e2.Close()

	_, ok := mustGet(t, e2, "x")
	require.False(t, ok)
	v, ok := mustGet(t, e2, "y")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestPeriodicCompactionTriggersAfterInterval(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Dir = dir
	opts.CompactionPolicy = PeriodicCompaction(time.Nanosecond)
	e, err := Open(opts)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set([]byte("a"), []byte("1")))
	require.NoError(t, e.Flush())
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, e.Set([]byte("b"), []byte("2")))

	names, err := scanTableNames(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestSetCompactionPolicyTakesEffectOnNextWrite(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	defer e.Close()

	require.NoError(t, e.Set([]byte("a"), []byte("1")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Set([]byte("b"), []byte("2")))
	require.NoError(t, e.Flush())

	names, err := scanTableNames(dir)
	require.NoError(t, err)
	require.Len(t, names, 2)

	require.NoError(t, e.SetCompactionPolicy(PeriodicCompaction(time.Nanosecond)))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, e.Set([]byte("c"), []byte("3")))

	names, err = scanTableNames(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestSizeOnDiskShrinksAfterCompaction(t *testing.T) {
	dir := t.TempDir()
	e := openTest(t, dir)
	defer e.Close()

	require.NoError(t, e.Set([]byte("k"), []byte("v1")))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Set([]byte("k"), []byte("v2")))
	require.NoError(t, e.Flush())

	before, err := e.SizeOnDisk()
	require.NoError(t, err)
	require.Equal(t, 2, e.Len())

	require.NoError(t, e.Compact())
	after, err := e.SizeOnDisk()
	require.NoError(t, err)

	require.Equal(t, 1, e.Len())
	require.Less(t, after, before)
}

func TestOperationsOnClosedEngineFail(t *testing.T) {
	e := openTest(t, t.TempDir())
	require.NoError(t, e.Close())

	require.ErrorIs(t, e.Set([]byte("a"), []byte("1")), ErrClosed)
	_, _, err := e.Get([]byte("a"))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, e.SetCompactionPolicy(DisabledCompaction()), ErrClosed)
}

func TestInvalidOptionsRejected(t *testing.T) {
	_, err := Open(Options{})
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Open(Options{Dir: filepath.Join(t.TempDir(), "db"), BlockSize: 123})
	require.ErrorIs(t, err, ErrInvalidOptions)
}
