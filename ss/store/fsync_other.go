//go:build !unix

package store

import "os"

// fsyncFile falls back to the standard library's Sync on non-unix targets.
func fsyncFile(f *os.File) error {
	return f.Sync()
}

// fsyncDir is a no-op where directory-entry fsync isn't meaningful.
func fsyncDir(path string) error {
	return nil
}
