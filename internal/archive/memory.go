package archive

import (
	"fmt"
	"io"
	"sync"

	"dupes-go/internal/dupes"
)

// MemoryArchive is an in-memory implementation of the Archive interface,
// useful for testing.
type MemoryArchive struct {
	mu      sync.RWMutex
	content map[string][]byte
}

// NewMemoryArchive creates a new in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		content: make(map[string][]byte),
	}
}

func (a *MemoryArchive) Put(hash string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.content[hash] = data
	return nil
}

func (a *MemoryArchive) Has(hash string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.content[hash]
	return ok, nil
}

func (a *MemoryArchive) Get(hash string, w io.Writer) error {
	a.mu.RLock()
	data, ok := a.content[hash]
	a.mu.RUnlock()

	if !ok {
		return fmt.Errorf("content not found: %s", hash)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (a *MemoryArchive) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryArchive implements dupes.Archive
var _ dupes.Archive = (*MemoryArchive)(nil)
