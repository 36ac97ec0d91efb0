package dupes

// RecordSort is the closed set of fields the index can sort records by.
// Presentation callers map user input onto one of these values; the storage
// layer maps them onto column names. User strings never reach the query text.
type RecordSort int

const (
	SortByHash RecordSort = iota
	SortByPath
	SortBySize
	SortByModified
	SortByChecked
)

// RecordQuery describes a read-side records query for the presentation layer.
type RecordQuery struct {
	// Search is a substring matched against both path and hash. Empty
	// matches everything. LIKE wildcards in the input are escaped.
	Search string
	// DuplicatesOnly restricts the result to records whose hash appears
	// more than once in the index.
	DuplicatesOnly bool
	Sort           RecordSort
	Descending     bool
}

// Index is the durable path-keyed file index.
//
// Write methods serialize per path with last-write-wins semantics. Read
// methods observe committed state only; a read error always propagates to
// the caller (a partial duplicate view is not safe to act on).
type Index interface {
	// Upsert inserts the record, or updates hash/size/modified/last-checked
	// in place when the path already exists.
	Upsert(record *FileRecord) error

	// UpsertBatch commits a set of records in one transaction. A record
	// that fails to write is logged and dropped; the rest of the batch
	// still commits.
	UpsertBatch(records []*FileRecord) error

	// AllPaths returns the set of every indexed path.
	AllPaths() (map[string]struct{}, error)

	// GroupsByHash returns hash groups ordered by hash then path.
	// With an empty prefix, only hashes with two or more members are
	// returned. With a non-empty prefix, the result is restricted to
	// paths lexically prefixed by it (a literal match, not a glob) and
	// may include singleton groups; the resolver filters those after
	// scoping.
	GroupsByHash(pathPrefix string) ([]HashGroup, error)

	// AllRecords returns records matching the query, for display/export.
	AllRecords(q RecordQuery) ([]*FileRecord, error)

	// DeleteByPath removes a single record. Unknown paths are a no-op.
	DeleteByPath(path string) error

	// DeletePaths removes a set of records in one transaction.
	DeletePaths(paths []string) error

	// Count returns the number of indexed records.
	Count() (int64, error)

	// Scan operation history

	CreateScanOperation(operation, parameters string) (*ScanOperation, error)
	FinishScanOperation(id int64, status string) error
	ListScanOperations(limit int) ([]*ScanOperation, error)

	// Close closes the underlying store.
	Close() error
}
