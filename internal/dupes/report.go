package dupes

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Row statuses for listing and deletion reports.
const (
	StatusOriginal            = "original"
	StatusDuplicate           = "duplicate"
	StatusDuplicateNoOriginal = "duplicate - no matching original"
	StatusKept                = "kept"
	StatusKeptNoOriginal      = "kept - no matching original"
	StatusDeleted             = "deleted"
	StatusDeletedSimulated    = "deleted (simulated)"
)

// ErrorStatus formats a per-file failure as a report status.
func ErrorStatus(err error) string {
	return fmt.Sprintf("error - %v", err)
}

// ReportRow is one structured entry in a listing or deletion report.
type ReportRow struct {
	Status string
	Path   string
	Hash   string
}

// GroupRows flattens resolved groups into listing rows: one row for the
// original of each group followed by one per duplicate.
func GroupRows(groups []*Group) []ReportRow {
	var rows []ReportRow
	for _, g := range groups {
		origStatus, dupStatus := StatusOriginal, StatusDuplicate
		if g.NoMatchingOriginal {
			dupStatus = StatusDuplicateNoOriginal
		}
		rows = append(rows, ReportRow{Status: origStatus, Path: g.Original, Hash: g.Hash})
		for _, p := range g.Duplicates {
			rows = append(rows, ReportRow{Status: dupStatus, Path: p, Hash: g.Hash})
		}
	}
	return rows
}

// ReportWriter streams report rows as CSV.
type ReportWriter struct {
	cw *csv.Writer
}

// NewReportWriter creates a ReportWriter on w.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{cw: csv.NewWriter(w)}
}

// WriteHeader writes the standard report header. Callers appending to an
// existing report skip it.
func (rw *ReportWriter) WriteHeader() error {
	if err := rw.cw.Write([]string{"status", "path", "hash"}); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	return nil
}

// Write appends one row.
func (rw *ReportWriter) Write(row ReportRow) error {
	if err := rw.cw.Write([]string{row.Status, row.Path, row.Hash}); err != nil {
		return fmt.Errorf("writing report row: %w", err)
	}
	return nil
}

// Flush flushes buffered rows to the underlying writer.
func (rw *ReportWriter) Flush() error {
	rw.cw.Flush()
	if err := rw.cw.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}
