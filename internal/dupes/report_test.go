package dupes_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"dupes-go/internal/dupes"
)

func TestGroupRows(t *testing.T) {
	groups := []*dupes.Group{
		{
			Hash:       "h1",
			Original:   "/a/file",
			Duplicates: []string{"/b/file", "/c/file"},
		},
		{
			Hash:               "h2",
			Original:           "/x/file",
			Duplicates:         []string{"/y/file"},
			NoMatchingOriginal: true,
		},
	}

	rows := dupes.GroupRows(groups)

	want := []dupes.ReportRow{
		{Status: "original", Path: "/a/file", Hash: "h1"},
		{Status: "duplicate", Path: "/b/file", Hash: "h1"},
		{Status: "duplicate", Path: "/c/file", Hash: "h1"},
		{Status: "original", Path: "/x/file", Hash: "h2"},
		{Status: "duplicate - no matching original", Path: "/y/file", Hash: "h2"},
	}

	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestErrorStatus(t *testing.T) {
	got := dupes.ErrorStatus(errors.New("permission denied"))
	if got != "error - permission denied" {
		t.Errorf("ErrorStatus() = %q", got)
	}
}

func TestReportWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := dupes.NewReportWriter(&buf)

	if err := rw.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	rows := []dupes.ReportRow{
		{Status: "original", Path: "/a/file", Hash: "h1"},
		{Status: "deleted (simulated)", Path: "/b/file", Hash: "h1"},
		{Status: "error - open /c/file: permission denied", Path: "/c/file", Hash: "h1"},
	}
	for _, row := range rows {
		if err := rw.Write(row); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := rw.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "status,path,hash" {
		t.Errorf("header = %q, want %q", lines[0], "status,path,hash")
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[1] != "original,/a/file,h1" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "deleted (simulated),/b/file,h1" {
		t.Errorf("row 2 = %q", lines[2])
	}
}
