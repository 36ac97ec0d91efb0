package database

// Schema is the complete current schema, equivalent to applying every
// migration in migrations/files in order. Tests and in-memory databases
// apply it directly instead of running the migration machinery.
const Schema = `
CREATE TABLE files (
    path TEXT PRIMARY KEY,
    hash TEXT NOT NULL,
    size INTEGER NOT NULL,
    modified_at TIMESTAMP NOT NULL,
    last_checked_at TIMESTAMP NOT NULL
);

CREATE INDEX files_hash_idx ON files (hash);

CREATE TABLE scan_operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL,
    parameters TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);
`
