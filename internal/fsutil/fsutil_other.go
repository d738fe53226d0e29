//go:build !linux

package fsutil

import "os"

// sync is the portable fallback: full fsync via the standard library.
func sync(f *os.File) error {
	return f.Sync()
}
