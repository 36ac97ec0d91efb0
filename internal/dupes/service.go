package dupes

// Service is the orchestration layer that coordinates the walker, the
// hashing workers, the index, and the resolver to perform the high-level
// operations needed by the CLI and the web UI.
type Service struct {
	index  Index
	fsmgr  FilesystemManager
	logger Logger
	clock  Clock
}

// NewService creates a new Service with the provided dependencies.
func NewService(index Index, fsmgr FilesystemManager, logger Logger, clock Clock) *Service {
	return &Service{
		index:  index,
		fsmgr:  fsmgr,
		logger: logger,
		clock:  clock,
	}
}

// History returns the most recent scan operations, newest first.
func (s *Service) History(limit int) ([]*ScanOperation, error) {
	return s.index.ListScanOperations(limit)
}
