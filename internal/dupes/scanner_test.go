package dupes_test

import (
	"testing"
	"time"

	"dupes-go/internal/dupes"
	"dupes-go/internal/testutil"
)

func TestService_Scan(t *testing.T) {
	t.Run("indexes every file under the root", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/a.txt", []byte("aaa"))
		fsmgr.AddFile("/data/sub/b.txt", []byte("bbb"))
		fsmgr.AddFile("/elsewhere/c.txt", []byte("ccc"))

		count, err := svc.Scan("/data", false, 2)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if count != 2 {
			t.Errorf("Scan() count = %d, want 2", count)
		}

		paths, err := idx.AllPaths()
		if err != nil {
			t.Fatalf("AllPaths() error = %v", err)
		}
		for _, want := range []string{"/data/a.txt", "/data/sub/b.txt"} {
			if _, ok := paths[want]; !ok {
				t.Errorf("path %s not indexed", want)
			}
		}
		if _, ok := paths["/elsewhere/c.txt"]; ok {
			t.Error("file outside root was indexed")
		}
	})

	t.Run("identical content hashes identically", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/one", []byte("same content"))
		fsmgr.AddFile("/data/two", []byte("same content"))
		fsmgr.AddFile("/data/other", []byte("different"))

		if _, err := svc.Scan("/data", false, 4); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		records, err := idx.AllRecords(dupes.RecordQuery{Sort: dupes.SortByPath})
		if err != nil {
			t.Fatalf("AllRecords() error = %v", err)
		}
		byPath := make(map[string]*dupes.FileRecord)
		for _, r := range records {
			byPath[r.Path] = r
		}

		if byPath["/data/one"].Hash != byPath["/data/two"].Hash {
			t.Error("identical content produced different hashes")
		}
		if byPath["/data/one"].Hash == byPath["/data/other"].Hash {
			t.Error("different content produced the same hash")
		}
		if len(byPath["/data/one"].Hash) != 16 {
			t.Errorf("hash %q is not 16 hex digits", byPath["/data/one"].Hash)
		}
	})

	t.Run("idempotent rescan", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/a", []byte("content a"))
		fsmgr.AddFile("/data/b", []byte("content b"))

		if _, err := svc.Scan("/data", false, 2); err != nil {
			t.Fatalf("first Scan() error = %v", err)
		}
		first, err := idx.AllRecords(dupes.RecordQuery{Sort: dupes.SortByPath})
		if err != nil {
			t.Fatalf("AllRecords() error = %v", err)
		}

		if _, err := svc.Scan("/data", false, 2); err != nil {
			t.Fatalf("second Scan() error = %v", err)
		}
		second, err := idx.AllRecords(dupes.RecordQuery{Sort: dupes.SortByPath})
		if err != nil {
			t.Fatalf("AllRecords() error = %v", err)
		}

		if len(first) != len(second) {
			t.Fatalf("record count changed: %d -> %d", len(first), len(second))
		}
		for i := range first {
			if first[i].Path != second[i].Path ||
				first[i].Hash != second[i].Hash ||
				first[i].Size != second[i].Size {
				t.Errorf("record changed on rescan: %+v -> %+v", first[i], second[i])
			}
		}
	})

	t.Run("skip existing avoids re-hashing indexed paths", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/a", []byte("aaa"))

		if _, err := svc.Scan("/data", false, 1); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		fsmgr.AddFile("/data/b", []byte("bbb"))
		count, err := svc.Scan("/data", true, 1)
		if err != nil {
			t.Fatalf("second Scan() error = %v", err)
		}
		if count != 1 {
			t.Errorf("Scan(skipExisting) count = %d, want 1", count)
		}

		n, err := idx.Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 2 {
			t.Errorf("Count() = %d, want 2", n)
		}
	})

	t.Run("unreadable file is skipped, scan continues", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/good", []byte("fine"))
		fsmgr.AddFile("/data/bad", []byte("unreadable"))
		fsmgr.FailOpen["/data/bad"] = true

		count, err := svc.Scan("/data", false, 2)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if count != 2 {
			t.Errorf("Scan() count = %d, want 2", count)
		}

		paths, err := idx.AllPaths()
		if err != nil {
			t.Fatalf("AllPaths() error = %v", err)
		}
		if _, ok := paths["/data/good"]; !ok {
			t.Error("readable file not indexed")
		}
		if _, ok := paths["/data/bad"]; ok {
			t.Error("unreadable file was indexed")
		}
	})

	t.Run("file vanishing between enumeration and hashing is not an error", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/stays", []byte("here"))
		fsmgr.AddFile("/data/goes", []byte("gone"))
		fsmgr.Vanish("/data/goes")

		if _, err := svc.Scan("/data", false, 2); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		paths, err := idx.AllPaths()
		if err != nil {
			t.Fatalf("AllPaths() error = %v", err)
		}
		if _, ok := paths["/data/goes"]; ok {
			t.Error("vanished file was indexed")
		}
		if _, ok := paths["/data/stays"]; !ok {
			t.Error("surviving file not indexed")
		}
	})

	t.Run("last checked is stamped at commit time", func(t *testing.T) {
		idx := testutil.NewTestIndex(t)
		fsmgr := testutil.NewMockFilesystemManager()
		clock := testutil.NewStubClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		svc := dupes.NewService(idx, fsmgr, dupes.NewNopLogger(), clock)

		fsmgr.AddFile("/data/a", []byte("aaa"))

		if _, err := svc.Scan("/data", false, 1); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		records, err := idx.AllRecords(dupes.RecordQuery{})
		if err != nil {
			t.Fatalf("AllRecords() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if !records[0].LastCheckedAt.Equal(clock.Now()) {
			t.Errorf("LastCheckedAt = %v, want %v", records[0].LastCheckedAt, clock.Now())
		}
	})

	t.Run("invalid root returns error before any mutation", func(t *testing.T) {
		svc, idx, _ := newTestService(t)

		if _, err := svc.Scan("/does/not/exist", false, 1); err == nil {
			t.Fatal("Scan() expected error for missing root")
		}

		n, err := idx.Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 0 {
			t.Errorf("Count() = %d after failed scan, want 0", n)
		}
	})

	t.Run("root that is a file returns error", func(t *testing.T) {
		svc, _, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/file", []byte("x"))

		if _, err := svc.Scan("/data/file", false, 1); err == nil {
			t.Fatal("Scan() expected error for non-directory root")
		}
	})

	t.Run("concurrency larger than file count", func(t *testing.T) {
		svc, idx, fsmgr := newTestService(t)
		fsmgr.AddFile("/data/only", []byte("x"))

		if _, err := svc.Scan("/data", false, 64); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		n, _ := idx.Count()
		if n != 1 {
			t.Errorf("Count() = %d, want 1", n)
		}
	})
}
