package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("create test file: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	got, err := os.ReadFile(path) //nolint:gosec // G304: path is test-controlled
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(got)
}

func TestCopyDir_Validation(t *testing.T) {
	t.Parallel()

	file := createTestFile(t, t.TempDir(), "dump.rdb", "REDIS")

	tests := map[string]struct {
		src, dst string
		want     error
	}{
		"empty source":      {src: "", dst: "/tmp/x", want: ErrEmptySrc},
		"empty destination": {src: "/tmp/x", dst: "", want: ErrEmptyDst},
		"both empty":        {src: "", dst: "", want: ErrEmptySrc},
		"source is a file":  {src: file, dst: filepath.Join(t.TempDir(), "out"), want: ErrNotDir},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if err := CopyDir(tc.src, tc.dst); !errors.Is(err, tc.want) {
				t.Errorf("CopyDir() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCopyDir_MissingSource(t *testing.T) {
	t.Parallel()

	err := CopyDir(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyDir_RecursiveClone(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "ws", "data")

	createTestFile(t, src, "dump.rdb", "snapshot")
	createTestFile(t, src, filepath.Join("appendonlydir", "appendonly.aof.1.base.rdb"), "base")

	if err := CopyDir(src, dst); err != nil {
		t.Fatalf("CopyDir() error: %v", err)
	}

	if got := readFile(t, filepath.Join(dst, "dump.rdb")); got != "snapshot" {
		t.Errorf("dump.rdb = %q, want %q", got, "snapshot")
	}
	if got := readFile(t, filepath.Join(dst, "appendonlydir", "appendonly.aof.1.base.rdb")); got != "base" {
		t.Errorf("nested file = %q, want %q", got, "base")
	}

	// The clone is independent of its source.
	createTestFile(t, dst, "dump.rdb", "changed")
	if got := readFile(t, filepath.Join(src, "dump.rdb")); got != "snapshot" {
		t.Errorf("source modified through clone: %q", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	t.Run("creates parents and sets mode", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "a", "redis.conf")

		if err := WriteFileAtomic(path, []byte("port 6379\n"), 0o600); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}
		if got := readFile(t, path); got != "port 6379\n" {
			t.Errorf("content = %q", got)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if got := info.Mode().Perm(); got != 0o600 {
			t.Errorf("mode = %o, want %o", got, 0o600)
		}
	})

	t.Run("overwrites without leaving temp files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := createTestFile(t, dir, "redis.conf", "old")

		if err := WriteFileAtomic(path, []byte("new"), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error: %v", err)
		}
		if got := readFile(t, path); got != "new" {
			t.Errorf("content = %q, want %q", got, "new")
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 entry in dir, got %d", len(entries))
		}
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		if err := WriteFileAtomic("", nil, 0o644); !errors.Is(err, ErrEmptyDst) {
			t.Errorf("error = %v, want %v", err, ErrEmptyDst)
		}
	})
}
