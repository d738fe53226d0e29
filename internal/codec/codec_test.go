package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendEntryRoundTrip(t *testing.T) {
	var buf []byte
	buf, err := AppendEntry(buf, []byte("key1"), []byte("val1"))
	require.NoError(t, err)

	rec, err := ReadEntry(bytes.NewReader(buf))
	require.NoError(t, err)
	require.False(t, rec.Tombstone)
	require.Equal(t, "key1", string(rec.Key))
	require.Equal(t, "val1", string(rec.Value))
}

func TestAppendTombstoneRoundTrip(t *testing.T) {
	buf := AppendTombstone(nil, []byte("gone"))

	rec, err := ReadEntry(bytes.NewReader(buf))
	require.NoError(t, err)
	require.True(t, rec.Tombstone)
	require.Nil(t, rec.Value)
	require.Equal(t, "gone", string(rec.Key))
}

func TestReadEntryEOFAtBoundary(t *testing.T) {
	_, err := ReadEntry(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

func TestReadEntryShortRecordIsCorrupt(t *testing.T) {
	buf := AppendTombstone(nil, []byte("k"))
	truncated := buf[:len(buf)-2]

	_, err := ReadEntry(bytes.NewReader(truncated))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestEmptyValueAccepted(t *testing.T) {
	_, err := AppendEntry(nil, []byte("k"), make([]byte, 0))
	require.NoError(t, err)
}

func TestMultipleEntriesSequential(t *testing.T) {
	var buf []byte
	buf, _ = AppendEntry(buf, []byte("a"), []byte("1"))
	buf = AppendTombstone(buf, []byte("b"))
	buf, _ = AppendEntry(buf, []byte("c"), []byte("3"))

	r := bytes.NewReader(buf)
	rec1, err := ReadEntry(r)
	require.NoError(t, err)
	require.Equal(t, "a", string(rec1.Key))

	rec2, err := ReadEntry(r)
	require.NoError(t, err)
	require.True(t, rec2.Tombstone)
	require.Equal(t, "b", string(rec2.Key))

	rec3, err := ReadEntry(r)
	require.NoError(t, err)
	require.Equal(t, "3", string(rec3.Value))

	_, err = ReadEntry(r)
	require.ErrorIs(t, err, io.EOF)
}
