package filesystem

import (
	"io/fs"
	"time"
)

// FileSystem defines the filesystem primitives the listing engine consumes.
// Decoupling from the os package keeps the snapshot builder, cache and
// reconciler testable against an in-memory implementation.
type FileSystem interface {
	// ReadDir reads the named directory and returns its entries in
	// filesystem enumeration order.
	ReadDir(name string) ([]fs.DirEntry, error)

	// Stat returns a FileInfo describing the named file.
	Stat(name string) (fs.FileInfo, error)

	// Rename renames (moves) oldpath to newpath. If newpath already exists
	// and is not a directory, Rename replaces it; platform restrictions
	// surface as errors.
	Rename(oldpath, newpath string) error

	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)

	// Chtimes changes the modification time of the named file.
	// Kept for cache freshness test scenarios.
	Chtimes(name string, atime time.Time, mtime time.Time) error
}
