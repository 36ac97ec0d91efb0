package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dupes-go/internal/config"
	"dupes-go/internal/dupes"
)

// NewIndexFromConfig creates an Index implementation based on the database
// config type. File-backed databases are named by host ID so an index is
// never shared between hosts. Schema migrations are applied on open.
func NewIndexFromConfig(cfg config.DatabaseConfig, hostID string, logger dupes.Logger) (dupes.Index, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, hostID+".db")
		return openMigrated(dbPath, logger)
	case "memory":
		return openMigrated(":memory:", logger)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func openMigrated(path string, logger dupes.Logger) (*SQLiteIndex, error) {
	idx, err := NewSQLiteIndex(path, logger)
	if err != nil {
		return nil, err
	}
	if err := idx.Migrate(); err != nil {
		idx.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := idx.CheckMigrations(); err != nil {
		idx.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}
	return idx, nil
}
