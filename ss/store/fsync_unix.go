//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile flushes f's dirty pages to disk.
func fsyncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}

// fsyncDir flushes a directory's metadata (the new/renamed dirent) to
// disk after a create or atomic rename.
func fsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return err
	}
	defer d.Close()
	return unix.Fsync(int(d.Fd()))
}
