package dupes

import "time"

// FileRecord is the persistent index entry for one file on disk.
// Path is the unique key and is always absolute and cleaned.
type FileRecord struct {
	Path          string
	Hash          string // 64-bit content digest, 16 hex digits
	Size          int64
	ModifiedAt    time.Time // filesystem mtime at last successful scan
	LastCheckedAt time.Time // when the file was last successfully hashed
}

// HashGroup is the raw grouping-query result: every indexed path sharing
// one hash. Paths are sorted. Groups of size 1 may appear here; the
// resolver is responsible for dropping them after scope filtering.
type HashGroup struct {
	Hash  string
	Paths []string
}

// ScanOperation records one DB-mutating CLI invocation.
type ScanOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}
