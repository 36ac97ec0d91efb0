package dupes

import (
	"fmt"
	"sync"
)

// Scan walks root, hashes every regular file under it with a bounded pool
// of concurrency workers, and commits the results to the index in batches.
// When skipExisting is set, paths already present in the index are not
// re-hashed. Returns the number of files dispatched to workers.
//
// Batches are processed sequentially; within a batch, workers run
// concurrently and results are collected batch-locally, so the only commit
// boundary is the UpsertBatch call after the whole batch completes. A
// worker failure produces fewer rows in the batch, never an aborted scan.
func (s *Service) Scan(root string, skipExisting bool, concurrency int) (int, error) {
	root, err := s.fsmgr.Resolve(root)
	if err != nil {
		return 0, fmt.Errorf("resolving scan root: %w", err)
	}

	info, err := s.fsmgr.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", root)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	paths, err := s.fsmgr.FindFiles(root)
	if err != nil {
		return 0, fmt.Errorf("enumerating files: %w", err)
	}

	if skipExisting {
		existing, err := s.index.AllPaths()
		if err != nil {
			return 0, fmt.Errorf("loading indexed paths: %w", err)
		}
		remaining := paths[:0]
		for _, p := range paths {
			if _, ok := existing[p]; !ok {
				remaining = append(remaining, p)
			}
		}
		paths = remaining
	}

	s.logger.Info("scan started", "root", root, "files", len(paths), "concurrency", concurrency)

	processed := 0
	for start := 0; start < len(paths); start += concurrency {
		end := start + concurrency
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		// One worker per path, one result slot per worker. Results stay
		// batch-local until the whole batch has finished.
		results := make([]*FileRecord, len(batch))
		var wg sync.WaitGroup
		for i, p := range batch {
			wg.Add(1)
			go func(i int, p string) {
				defer wg.Done()
				rec, err := s.hashFile(p)
				if err != nil {
					s.logger.Warn("hashing failed", "path", p, "error", err)
					return
				}
				if rec == nil {
					s.logger.Info("file vanished before hashing", "path", p)
					return
				}
				results[i] = rec
			}(i, p)
		}
		wg.Wait()

		now := s.clock.Now()
		commit := make([]*FileRecord, 0, len(results))
		for _, rec := range results {
			if rec == nil {
				continue
			}
			rec.LastCheckedAt = now
			commit = append(commit, rec)
		}

		if len(commit) > 0 {
			if err := s.index.UpsertBatch(commit); err != nil {
				s.logger.Error("committing batch", "records", len(commit), "error", err)
			}
		}

		processed += len(batch)
		s.logger.Info("scan progress", "processed", processed, "total", len(paths))
	}

	s.logger.Info("scan complete", "processed", processed)
	return processed, nil
}
