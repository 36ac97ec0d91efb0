package fs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	m := NewOSFilesystemManager(nil, nil)

	t.Run("absolute path is cleaned", func(t *testing.T) {
		got, err := m.Resolve("/tmp/../tmp/file.txt")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "/tmp/file.txt" {
			t.Errorf("Resolve() = %q, want /tmp/file.txt", got)
		}
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		got, err := m.Resolve("some/file.txt")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("Resolve() = %q, want absolute path", got)
		}
	})
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	t.Run("finds nested regular files", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, filepath.Join(dir, "a.txt"), "a")
		writeTestFile(t, filepath.Join(dir, "sub", "b.txt"), "b")
		writeTestFile(t, filepath.Join(dir, "sub", "deep", "c.txt"), "c")

		m := NewOSFilesystemManager(nil, nil)
		paths, err := m.FindFiles(dir)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}

		want := []string{
			filepath.Join(dir, "a.txt"),
			filepath.Join(dir, "sub", "b.txt"),
			filepath.Join(dir, "sub", "deep", "c.txt"),
		}
		sort.Strings(paths)
		if len(paths) != len(want) {
			t.Fatalf("FindFiles() returned %d paths, want %d: %v", len(paths), len(want), paths)
		}
		for i, p := range want {
			if paths[i] != p {
				t.Errorf("paths[%d] = %q, want %q", i, paths[i], p)
			}
		}
	})

	t.Run("does not follow symlinks", func(t *testing.T) {
		dir := t.TempDir()
		outside := t.TempDir()
		writeTestFile(t, filepath.Join(dir, "real.txt"), "real")
		writeTestFile(t, filepath.Join(outside, "target.txt"), "target")

		if err := os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(dir, "link.txt")); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}
		if err := os.Symlink(outside, filepath.Join(dir, "linkdir")); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}

		m := NewOSFilesystemManager(nil, nil)
		paths, err := m.FindFiles(dir)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(paths) != 1 {
			t.Fatalf("FindFiles() returned %d paths, want 1: %v", len(paths), paths)
		}
		if paths[0] != filepath.Join(dir, "real.txt") {
			t.Errorf("paths[0] = %q, want real.txt", paths[0])
		}
	})

	t.Run("applies configured ignore patterns", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, filepath.Join(dir, "keep.txt"), "keep")
		writeTestFile(t, filepath.Join(dir, "drop.log"), "drop")
		writeTestFile(t, filepath.Join(dir, "sub", "also.log"), "drop")

		m := NewOSFilesystemManager([]string{"*.log"}, nil)
		paths, err := m.FindFiles(dir)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(paths) != 1 {
			t.Fatalf("FindFiles() returned %d paths, want 1: %v", len(paths), paths)
		}
		if paths[0] != filepath.Join(dir, "keep.txt") {
			t.Errorf("paths[0] = %q, want keep.txt", paths[0])
		}
	})

	t.Run("merges root ignore file with configured patterns", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, filepath.Join(dir, IgnoreFileName), "*.bak\n")
		writeTestFile(t, filepath.Join(dir, "keep.txt"), "keep")
		writeTestFile(t, filepath.Join(dir, "old.bak"), "old")
		writeTestFile(t, filepath.Join(dir, "trace.log"), "trace")

		m := NewOSFilesystemManager([]string{"*.log"}, nil)
		paths, err := m.FindFiles(dir)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(paths) != 1 {
			t.Fatalf("FindFiles() returned %d paths, want 1: %v", len(paths), paths)
		}
		if paths[0] != filepath.Join(dir, "keep.txt") {
			t.Errorf("paths[0] = %q, want keep.txt", paths[0])
		}
	})

	t.Run("never returns the ignore file itself", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, filepath.Join(dir, IgnoreFileName), "")
		writeTestFile(t, filepath.Join(dir, "file.txt"), "x")

		m := NewOSFilesystemManager(nil, nil)
		paths, err := m.FindFiles(dir)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		for _, p := range paths {
			if filepath.Base(p) == IgnoreFileName {
				t.Errorf("FindFiles() returned ignore file %q", p)
			}
		}
		if len(paths) != 1 {
			t.Errorf("FindFiles() returned %d paths, want 1: %v", len(paths), paths)
		}
	})

	t.Run("empty directory yields no paths", func(t *testing.T) {
		dir := t.TempDir()
		m := NewOSFilesystemManager(nil, nil)
		paths, err := m.FindFiles(dir)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("FindFiles() returned %d paths, want 0: %v", len(paths), paths)
		}
	})
}

func TestOSFilesystemManager_StatOpenRemove(t *testing.T) {
	m := NewOSFilesystemManager(nil, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	writeTestFile(t, path, "hello")

	info, err := m.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Stat().Size() = %d, want 5", info.Size())
	}

	f, err := m.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("read %q, want hello", data)
	}

	if err := m.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := m.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat() after Remove() = %v, want not-exist", err)
	}
}
