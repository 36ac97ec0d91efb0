package dupes

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

// RescanDuplicates re-hashes every file currently in a duplicate group and
// re-upserts its record. A member whose backing file has vanished is
// deleted from the index instead. Returns the number of members visited.
func (s *Service) RescanDuplicates() (int, error) {
	groups, err := s.index.GroupsByHash("")
	if err != nil {
		return 0, fmt.Errorf("querying hash groups: %w", err)
	}

	visited := 0
	for _, g := range groups {
		for _, p := range g.Paths {
			visited++

			rec, err := s.hashFile(p)
			if err != nil {
				s.logger.Warn("rescan failed", "path", p, "error", err)
				continue
			}
			if rec == nil {
				s.logger.Info("file no longer exists, removing from index", "path", p)
				if err := s.index.DeleteByPath(p); err != nil {
					s.logger.Error("removing vanished file", "path", p, "error", err)
				}
				continue
			}

			rec.LastCheckedAt = s.clock.Now()
			if err := s.index.Upsert(rec); err != nil {
				s.logger.Error("updating record", "path", p, "error", err)
			}
		}
	}

	s.logger.Info("rescan complete", "visited", visited)
	return visited, nil
}

// PruneMissing removes every index entry whose backing file is absent and
// returns the number removed.
func (s *Service) PruneMissing() (int, error) {
	paths, err := s.index.AllPaths()
	if err != nil {
		return 0, fmt.Errorf("loading indexed paths: %w", err)
	}

	var missing []string
	for p := range paths {
		if _, err := s.fsmgr.Stat(p); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	sort.Strings(missing)

	if err := s.index.DeletePaths(missing); err != nil {
		return 0, fmt.Errorf("deleting missing paths: %w", err)
	}

	s.logger.Info("prune complete", "removed", len(missing))
	return len(missing), nil
}

// DeleteOptions controls DeleteDuplicates.
type DeleteOptions struct {
	// PreferredDirs is the ordered original-selection preference.
	PreferredDirs []string
	// WithinDir scopes both resolution and deletion to one subtree.
	WithinDir string
	// Simulate reports what would be deleted without touching the
	// filesystem.
	Simulate bool
	// Archive, when non-nil, receives a copy of each duplicate before it
	// is deleted. An archival failure keeps the file on disk.
	Archive Archive
	// Log, when non-nil, receives one row per decision as it is made.
	Log *ReportWriter
}

// DeleteDuplicates resolves duplicate groups fresh and deletes every
// duplicate member, keeping the selected original of each group. Per-file
// failures are recorded and do not stop the remaining deletions. Returns
// every decision row in order.
func (s *Service) DeleteDuplicates(opts DeleteOptions) ([]ReportRow, error) {
	withinDir := ""
	if opts.WithinDir != "" {
		resolved, err := s.fsmgr.Resolve(opts.WithinDir)
		if err != nil {
			return nil, fmt.Errorf("resolving within-directory: %w", err)
		}
		withinDir = resolved
	}

	groups, err := s.Resolve(opts.PreferredDirs, withinDir)
	if err != nil {
		return nil, err
	}

	var rows []ReportRow
	emit := func(row ReportRow) {
		rows = append(rows, row)
		if opts.Log != nil {
			if err := opts.Log.Write(row); err != nil {
				s.logger.Error("writing deletion log", "path", row.Path, "error", err)
			}
		}
	}

	for _, g := range groups {
		keptStatus := StatusKept
		if g.NoMatchingOriginal {
			keptStatus = StatusKeptNoOriginal
		}
		emit(ReportRow{Status: keptStatus, Path: g.Original, Hash: g.Hash})

		for _, p := range g.Duplicates {
			// Resolution is already scoped, but deletion re-checks so a
			// file outside the requested subtree is never touched.
			if withinDir != "" && !underDir(p, withinDir) {
				s.logger.Debug("skipping path outside scope", "path", p)
				continue
			}

			if opts.Simulate {
				emit(ReportRow{Status: StatusDeletedSimulated, Path: p, Hash: g.Hash})
				continue
			}

			if opts.Archive != nil {
				if err := s.archiveFile(opts.Archive, g.Hash, p); err != nil {
					s.logger.Warn("archiving failed, keeping file", "path", p, "error", err)
					emit(ReportRow{Status: ErrorStatus(err), Path: p, Hash: g.Hash})
					continue
				}
			}

			if err := s.fsmgr.Remove(p); err != nil {
				s.logger.Warn("deletion failed", "path", p, "error", err)
				emit(ReportRow{Status: ErrorStatus(err), Path: p, Hash: g.Hash})
				continue
			}

			s.logger.Info("duplicate deleted", "path", p, "hash", g.Hash)
			emit(ReportRow{Status: StatusDeleted, Path: p, Hash: g.Hash})
		}
	}

	if opts.Log != nil {
		if err := opts.Log.Flush(); err != nil {
			s.logger.Error("flushing deletion log", "error", err)
		}
	}

	return rows, nil
}

// archiveFile copies one file into the archive, addressed by its digest.
func (s *Service) archiveFile(archive Archive, hash, path string) error {
	info, err := s.fsmgr.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	f, err := s.fsmgr.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if err := archive.Put(hash, f, info.Size()); err != nil {
		return fmt.Errorf("archiving content: %w", err)
	}
	return nil
}
