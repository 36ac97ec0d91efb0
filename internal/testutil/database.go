package testutil

import (
	"testing"

	"dupes-go/internal/database"
	"dupes-go/internal/dupes"
)

// NewTestIndex creates a new in-memory SQLite index with schema applied.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T) dupes.Index {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	idx := database.NewSQLiteIndexFromDB(sqlDB, nil)

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}
