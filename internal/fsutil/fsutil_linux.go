//go:build linux

package fsutil

import (
	"os"

	"golang.org/x/sys/unix"
)

// sync calls fdatasync(2) instead of fsync(2): the WAL and SST files this
// engine writes never need their inode metadata (size, mtime) synced
// separately from their data, since every write that changes the file's
// size is itself followed by another sync before the file is handed to a
// reader.
func sync(f *os.File) error {
	for {
		err := unix.Fdatasync(int(f.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}
