package dupes

import (
	"io"
	"io/fs"
)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real
// filesystem.
type FilesystemManager interface {
	// Resolve converts a raw path into a cleaned absolute path. It does
	// not require the path to exist.
	Resolve(rawPath string) (string, error)

	// Stat returns file info for a path. A missing file reports an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	Stat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// FindFiles walks root depth-first and returns every regular file
	// under it. Unreadable directories are skipped, symbolic links are
	// never followed, and per-entry errors are logged and skipped.
	// Enumeration order is filesystem-dependent.
	FindFiles(root string) ([]string, error)

	// Remove deletes a file from the filesystem.
	Remove(path string) error
}
