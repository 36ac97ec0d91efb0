package app

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"dupes-go/internal/archive"
	"dupes-go/internal/config"
	"dupes-go/internal/database"
	"dupes-go/internal/dupes"
	"dupes-go/internal/fs"
)

// DupesApp is the application layer between the CLI and the dupes Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the index lifecycle on Close.
type DupesApp struct {
	cfg     *config.Config
	index   dupes.Index
	archive dupes.Archive
	fsmgr   dupes.FilesystemManager
	service *dupes.Service
	logger  dupes.Logger
	op      *ScanOperation
	logFile *os.File
}

// NewDupesApp creates a fully wired DupesApp from the given config.
// operation identifies the CLI command being run (e.g. "Process",
// "DeleteDuplicates") and parameters records its arguments for the history.
// The caller must call Close when done.
func NewDupesApp(cfg *config.Config, operation, parameters string) (*DupesApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore, logger)

	index, err := database.NewIndexFromConfig(cfg.Database, cfg.HostID, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	arch, err := archive.NewArchiveFromConfig(cfg.Archive)
	if err != nil {
		index.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	if arch != nil {
		if err := arch.ValidateSetup(); err != nil {
			index.Close()
			logFile.Close()
			return nil, fmt.Errorf("validating archive: %w", err)
		}
	}

	svc := dupes.NewService(index, fsmgr, logger, dupes.RealClock{})
	op := NewScanOperation(operation, parameters)

	return &DupesApp{
		cfg:     cfg,
		index:   index,
		archive: arch,
		fsmgr:   fsmgr,
		service: svc,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}, nil
}

// persistOperation saves the scan operation to the database, giving it an
// auto-increment ID. This should only be called for index-mutating commands.
func (a *DupesApp) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	dbOp, err := a.index.CreateScanOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting scan operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// SetError marks the current operation as failed in the history.
func (a *DupesApp) SetError() {
	a.op.Status = "error"
}

// Process scans the given directory, hashing every regular file under it and
// upserting the results into the index. threads overrides the configured
// worker count when positive. Returns the number of files indexed.
func (a *DupesApp) Process(rawPath string, skipExisting bool, threads int) (int, error) {
	if err := a.persistOperation(); err != nil {
		return 0, err
	}

	concurrency := threads
	if concurrency <= 0 {
		concurrency = a.cfg.Scan.Threads
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	return a.service.Scan(rawPath, skipExisting, concurrency)
}

// RescanDuplicates re-hashes every indexed file that is part of a duplicate
// group. Returns the number of files visited.
func (a *DupesApp) RescanDuplicates() (int, error) {
	if err := a.persistOperation(); err != nil {
		return 0, err
	}
	return a.service.RescanDuplicates()
}

// CleanDB removes index entries whose backing files no longer exist.
// Returns the number of entries removed.
func (a *DupesApp) CleanDB() (int, error) {
	if err := a.persistOperation(); err != nil {
		return 0, err
	}
	return a.service.PruneMissing()
}

// ListDuplicates resolves duplicate groups and returns one row per member,
// original first.
func (a *DupesApp) ListDuplicates(preferredDirs []string, withinDir string) ([]dupes.ReportRow, error) {
	groups, err := a.service.Resolve(preferredDirs, withinDir)
	if err != nil {
		return nil, err
	}
	return dupes.GroupRows(groups), nil
}

// DeleteDuplicates deletes every duplicate member of every group, keeping
// the selected originals. The configured archive (if any) receives a copy of
// each duplicate before deletion.
func (a *DupesApp) DeleteDuplicates(opts dupes.DeleteOptions) ([]dupes.ReportRow, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	opts.Archive = a.archive
	return a.service.DeleteDuplicates(opts)
}

// History returns the most recent scan operations.
func (a *DupesApp) History(limit int) ([]*dupes.ScanOperation, error) {
	return a.service.History(limit)
}

// Index exposes the underlying file index for read-only consumers like the
// web UI.
func (a *DupesApp) Index() dupes.Index {
	return a.index
}

// Logger exposes the application logger.
func (a *DupesApp) Logger() dupes.Logger {
	return a.logger
}

// Close finalizes the operation and closes all resources.
// For persisted operations the operation record is finished first.
func (a *DupesApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.index.FinishScanOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing scan operation: %w", err)
		}
	}

	if err := a.index.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing index: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
