package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dupes-go/internal/database/migrations"
	"dupes-go/internal/dupes"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteIndex implements the dupes.Index interface using SQLite.
type SQLiteIndex struct {
	db     *sql.DB
	path   string
	logger dupes.Logger
}

// NewSQLiteIndex opens a SQLite index at path.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteIndex(path string, logger dupes.Logger) (*SQLiteIndex, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteIndexFromDB(db, logger).withPath(path), nil
}

// NewSQLiteIndexFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteIndexFromDB(db *sql.DB, logger dupes.Logger) *SQLiteIndex {
	if logger == nil {
		logger = dupes.NewNopLogger()
	}
	return &SQLiteIndex{db: db, logger: logger}
}

func (s *SQLiteIndex) withPath(path string) *SQLiteIndex {
	s.path = path
	return s
}

// OpenConnection opens and configures a SQLite connection.
// Exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Concurrent upserts from scan workers contend on the single writer;
	// wait for locks instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

const upsertSQL = `
INSERT INTO files (path, hash, size, modified_at, last_checked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	hash = excluded.hash,
	size = excluded.size,
	modified_at = excluded.modified_at,
	last_checked_at = excluded.last_checked_at`

// Upsert inserts or updates a single record, keyed by path.
func (s *SQLiteIndex) Upsert(record *dupes.FileRecord) error {
	_, err := s.db.Exec(upsertSQL,
		record.Path, record.Hash, record.Size, record.ModifiedAt, record.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("upserting record: %w", err)
	}
	return nil
}

// UpsertBatch writes a batch of records in a single transaction. A record
// that fails individually is logged and dropped; the rest still commit.
// One transaction per file is the dominant cost at scale, which is why the
// scan coordinator always writes through this method.
func (s *SQLiteIndex) UpsertBatch(records []*dupes.FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(r.Path, r.Hash, r.Size, r.ModifiedAt, r.LastCheckedAt)
		if err != nil {
			s.logger.Error("dropping record", "path", r.Path, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// AllPaths returns the set of every indexed path.
func (s *SQLiteIndex) AllPaths() (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT path FROM files")
	if err != nil {
		return nil, fmt.Errorf("querying paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading paths: %w", err)
	}
	return paths, nil
}

// GroupsByHash returns hash groups ordered by hash then path.
//
// Without a prefix the query restricts itself to hashes with two or more
// members, which the secondary index on hash keeps cheap. With a prefix
// the size check must happen after filtering, so every (hash, path) pair
// is fetched and filtered here; byte-exact prefix matching is done in Go
// rather than with LIKE, which is case-insensitive for ASCII in SQLite.
func (s *SQLiteIndex) GroupsByHash(pathPrefix string) ([]dupes.HashGroup, error) {
	query := `
		SELECT hash, path FROM files
		WHERE hash IN (SELECT hash FROM files GROUP BY hash HAVING COUNT(*) > 1)
		ORDER BY hash, path`
	if pathPrefix != "" {
		query = "SELECT hash, path FROM files ORDER BY hash, path"
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying hash groups: %w", err)
	}
	defer rows.Close()

	var groups []dupes.HashGroup
	for rows.Next() {
		var hash, path string
		if err := rows.Scan(&hash, &path); err != nil {
			return nil, fmt.Errorf("scanning hash group row: %w", err)
		}
		if pathPrefix != "" && !strings.HasPrefix(path, pathPrefix) {
			continue
		}
		if len(groups) == 0 || groups[len(groups)-1].Hash != hash {
			groups = append(groups, dupes.HashGroup{Hash: hash})
		}
		g := &groups[len(groups)-1]
		g.Paths = append(g.Paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hash groups: %w", err)
	}
	return groups, nil
}

// sortColumn maps the closed sort enum onto column names. User input never
// reaches the query text.
func sortColumn(s dupes.RecordSort) string {
	switch s {
	case dupes.SortByPath:
		return "path"
	case dupes.SortBySize:
		return "size"
	case dupes.SortByModified:
		return "modified_at"
	case dupes.SortByChecked:
		return "last_checked_at"
	default:
		return "hash"
	}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// AllRecords returns records matching the query, for display and export.
func (s *SQLiteIndex) AllRecords(q dupes.RecordQuery) ([]*dupes.FileRecord, error) {
	query := "SELECT path, hash, size, modified_at, last_checked_at FROM files"
	var clauses []string
	var args []any

	if q.DuplicatesOnly {
		clauses = append(clauses, "hash IN (SELECT hash FROM files GROUP BY hash HAVING COUNT(*) > 1)")
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		clauses = append(clauses, `(path LIKE ? ESCAPE '\' OR hash LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, path ASC", sortColumn(q.Sort), direction)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*dupes.FileRecord
	for rows.Next() {
		var r dupes.FileRecord
		if err := rows.Scan(&r.Path, &r.Hash, &r.Size, &r.ModifiedAt, &r.LastCheckedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// DeleteByPath removes a single record. Deleting an unknown path is a no-op.
func (s *SQLiteIndex) DeleteByPath(path string) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// DeletePaths removes a set of records in one transaction.
func (s *SQLiteIndex) DeletePaths(paths []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM files WHERE path = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.Exec(p); err != nil {
			return fmt.Errorf("deleting %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletes: %w", err)
	}
	return nil
}

// Count returns the number of indexed records.
func (s *SQLiteIndex) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Scan operation tracking

func (s *SQLiteIndex) CreateScanOperation(operation, parameters string) (*dupes.ScanOperation, error) {
	startedAt := time.Now()
	res, err := s.db.Exec(
		"INSERT INTO scan_operations (operation, parameters, started_at) VALUES (?, ?, ?)",
		operation, parameters, startedAt)
	if err != nil {
		return nil, fmt.Errorf("creating scan operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading scan operation id: %w", err)
	}
	return &dupes.ScanOperation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
	}, nil
}

func (s *SQLiteIndex) FinishScanOperation(id int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE scan_operations SET finished_at = ?, status = ? WHERE id = ?",
		time.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing scan operation: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) ListScanOperations(limit int) ([]*dupes.ScanOperation, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, status, started_at, finished_at
		FROM scan_operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan operations: %w", err)
	}
	defer rows.Close()

	var ops []*dupes.ScanOperation
	for rows.Next() {
		var op dupes.ScanOperation
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning scan operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading scan operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteIndex) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteIndex) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies any pending schema migrations.
func (s *SQLiteIndex) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteIndex implements dupes.Index
var _ dupes.Index = (*SQLiteIndex)(nil)
