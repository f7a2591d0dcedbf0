package locator

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExecutable(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestPathLocator_Resolve(t *testing.T) {
	t.Parallel()

	binDir := t.TempDir()
	exe := writeExecutable(t, binDir, "redis-server", 0o755)
	writeExecutable(t, binDir, "not-executable", 0o644)
	secondDir := t.TempDir()
	shadowed := writeExecutable(t, secondDir, "redis-server", 0o755)
	onlySecond := writeExecutable(t, secondDir, "redis-cli", 0o755)

	loc := &PathLocator{Dirs: []string{binDir, secondDir}, SkipPATH: true}

	tests := map[string]struct {
		name   string
		want   string
		wantOK bool
	}{
		"bare name in first dir":    {name: "redis-server", want: exe, wantOK: true},
		"bare name in later dir":    {name: "redis-cli", want: onlySecond, wantOK: true},
		"absolute path":             {name: shadowed, want: shadowed, wantOK: true},
		"absolute missing path":     {name: "/path/to/anywhere", wantOK: false},
		"bare name not installed":   {name: "memcached", wantOK: false},
		"file without exec bit":     {name: "not-executable", wantOK: false},
		"directory is not a binary": {name: binDir, wantOK: false},
		"empty name":                {name: "", wantOK: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := loc.Resolve(tc.name)
			if ok != tc.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tc.name, ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestPathLocator_PrefersPATH(t *testing.T) {
	pathDir := t.TempDir()
	fromPATH := writeExecutable(t, pathDir, "redis-server", 0o755)
	fallbackDir := t.TempDir()
	writeExecutable(t, fallbackDir, "redis-server", 0o755)

	t.Setenv("PATH", pathDir)

	got, ok := (&PathLocator{Dirs: []string{fallbackDir}}).Resolve("redis-server")
	if !ok {
		t.Fatal("expected redis-server to resolve")
	}
	if got != fromPATH {
		t.Errorf("Resolve() = %q, want PATH entry %q", got, fromPATH)
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	var loc Locator = Func(func(string) (string, bool) { return "", false })
	if _, ok := loc.Resolve("redis-server"); ok {
		t.Error("expected stub locator to report absence")
	}
}
