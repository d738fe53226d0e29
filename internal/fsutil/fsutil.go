// Package fsutil wraps the durability barrier used throughout the engine:
// the point after which an append or a finished table is guaranteed to
// survive a crash. Every "fsync" named in the spec goes through Sync.
package fsutil

import "os"

// Sync forces f's contents to stable storage. On platforms with a cheaper
// data-only sync it is implemented without also flushing inode metadata
// (see fsutil_linux.go); elsewhere it falls back to the portable
// (*os.File).Sync.
func Sync(f *os.File) error {
	return sync(f)
}
