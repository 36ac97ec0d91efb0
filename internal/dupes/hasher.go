package dupes

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/cespare/xxhash/v2"
)

// hashChunkSize is the read chunk fed into the streaming digest.
const hashChunkSize = 8 * 1024

// hashFile reads the file at path and returns its index record: the
// 64-bit content digest as hex, the canonical absolute path, the size,
// and the modification time. LastCheckedAt is left zero; the caller stamps
// it at commit time.
//
// A file that no longer exists returns (nil, nil): vanishing between
// enumeration and hashing is expected, not an error. Any other I/O failure
// is returned for the caller to log as a soft failure.
func (s *Service) hashFile(path string) (*FileRecord, error) {
	canonical, err := s.fsmgr.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	info, err := s.fsmgr.Stat(canonical)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}

	f, err := s.fsmgr.Open(canonical)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	digest := xxhash.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return &FileRecord{
		Path:       canonical,
		Hash:       fmt.Sprintf("%016x", digest.Sum64()),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}
