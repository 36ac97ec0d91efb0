package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dupes-go/internal/dupes"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content []byte
	ModTime time.Time
	// Vanished makes Stat and Open report the file as missing while
	// keeping it visible to FindFiles, simulating a file deleted between
	// enumeration and hashing.
	Vanished bool
}

// MockFilesystemManager is an in-memory filesystem for testing. All paths
// are treated as absolute. Safe for concurrent use.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	dirs  map[string]bool

	// FailOpen lists paths whose Open calls fail.
	FailOpen map[string]bool
	// FailRemove lists paths whose Remove calls fail.
	FailRemove map[string]bool

	removed []string
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:      make(map[string]*MockFile),
		dirs:       make(map[string]bool),
		FailOpen:   make(map[string]bool),
		FailRemove: make(map[string]bool),
	}
}

// AddFile adds a file to the mock filesystem, creating parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[path] = &MockFile{
		Content: content,
		ModTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		m.dirs[dir] = true
		if dir == "/" || dir == "." {
			break
		}
	}
}

// AddDirectory adds an empty directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
}

// Vanish marks a file as missing for Stat and Open while FindFiles still
// enumerates it.
func (m *MockFilesystemManager) Vanish(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[path]; ok {
		f.Vanished = true
	}
}

// Removed returns the paths removed so far, in order.
func (m *MockFilesystemManager) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func (m *MockFilesystemManager) Resolve(rawPath string) (string, error) {
	if !filepath.IsAbs(rawPath) {
		return "", fmt.Errorf("mock filesystem requires absolute paths, got %q", rawPath)
	}
	return filepath.Clean(rawPath), nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if file, ok := m.files[path]; ok && !file.Vanished {
		return &mockFileInfo{
			name:    filepath.Base(path),
			size:    int64(len(file.Content)),
			mode:    0644,
			modTime: file.ModTime,
		}, nil
	}
	if m.dirs[path] {
		return &mockFileInfo{
			name:    filepath.Base(path),
			size:    0,
			mode:    fs.ModeDir | 0755,
			modTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			isDir:   true,
		}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOpen[path] {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
	}
	file, ok := m.files[path]
	if !ok || file.Vanished {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) FindFiles(root string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirs[root] {
		return nil, &fs.PathError{Op: "lstat", Path: root, Err: fs.ErrNotExist}
	}

	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var paths []string
	for path := range m.files {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRemove[path] {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrPermission}
	}
	if _, ok := m.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	m.removed = append(m.removed, path)
	return nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ dupes.FilesystemManager = (*MockFilesystemManager)(nil)
