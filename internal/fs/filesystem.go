package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"dupes-go/internal/dupes"
)

// OSFilesystemManager is the real filesystem implementation of
// dupes.FilesystemManager. It performs actual filesystem operations using
// the os package, applying the configured ignore patterns during walks.
type OSFilesystemManager struct {
	ignore []string
	logger dupes.Logger
}

// NewOSFilesystemManager creates a filesystem manager with the given
// ignore patterns.
func NewOSFilesystemManager(ignore []string, logger dupes.Logger) *OSFilesystemManager {
	if logger == nil {
		logger = dupes.NewNopLogger()
	}
	return &OSFilesystemManager{ignore: ignore, logger: logger}
}

// Resolve converts a raw path into a cleaned absolute path. The path does
// not have to exist.
func (m *OSFilesystemManager) Resolve(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return absPath, nil
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a file from the filesystem.
func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// FindFiles discovers regular files under root, descending depth-first.
// Unreadable directories and per-entry errors are logged and skipped, and
// symbolic links are never followed. An ignore file at the root of the
// walk is merged with the configured patterns.
func (m *OSFilesystemManager) FindFiles(root string) ([]string, error) {
	rootPatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		m.logger.Warn("ignore file unreadable", "root", root, "error", err)
	}
	patterns := make([]string, 0, len(m.ignore)+len(rootPatterns))
	patterns = append(patterns, m.ignore...)
	patterns = append(patterns, rootPatterns...)
	matcher := NewIgnoreMatcher(patterns)

	var paths []string
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directory or racing deletion: skip, not fatal.
			m.logger.Warn("skipping unreadable entry", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// Symlinks, devices, and other irregular entries are not files we
		// can meaningfully hash.
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			m.logger.Warn("skipping entry", "path", p, "error", err)
			return nil
		}
		if matcher.Match(rel) {
			return nil
		}

		paths = append(paths, p)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking directory: %w", walkErr)
	}

	return paths, nil
}

// Compile-time check that OSFilesystemManager implements dupes.FilesystemManager
var _ dupes.FilesystemManager = (*OSFilesystemManager)(nil)
