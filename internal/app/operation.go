package app

// ScanOperation tracks a CLI operation that may mutate the index.
// Operations are created in memory with ID=0. Only index-mutating commands
// persist them (giving them an auto-increment ID from the database).
type ScanOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewScanOperation creates a new in-memory scan operation.
func NewScanOperation(operation, parameters string) *ScanOperation {
	return &ScanOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *ScanOperation) Persisted() bool {
	return op.ID != 0
}
