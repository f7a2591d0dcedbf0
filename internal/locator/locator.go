package locator

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Locator resolves a program name to an executable path. ok is false when
// nothing executable was found.
type Locator interface {
	Resolve(name string) (path string, ok bool)
}

// DefaultSearchDirs are consulted after PATH, in order.
var DefaultSearchDirs = []string{
	"/usr/local/bin",
	"/usr/local/sbin",
	"/opt/homebrew/bin",
	"/opt/homebrew/sbin",
	"/opt/local/bin",
	"/opt/local/sbin",
	"/usr/bin",
	"/usr/sbin",
	"/bin",
	"/sbin",
}

// PathLocator searches PATH followed by Dirs.
type PathLocator struct {
	// Dirs are extra directories searched when PATH has no match.
	Dirs []string
	// SkipPATH disables the PATH lookup. Tests use it to make resolution
	// independent of the host environment.
	SkipPATH bool
}

// Default returns a PathLocator using PATH and DefaultSearchDirs.
func Default() *PathLocator {
	return &PathLocator{Dirs: DefaultSearchDirs}
}

// Resolve implements Locator.
func (l *PathLocator) Resolve(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutable(name) {
			return name, true
		}
		return "", false
	}
	if !l.SkipPATH {
		// LookPath errors (not found, ErrDot, permissions) fall through to
		// the well-known directories.
		if p, err := exec.LookPath(name); err == nil {
			if abs, absErr := filepath.Abs(p); absErr == nil {
				return abs, true
			}
			return p, true
		}
	}
	for _, dir := range l.Dirs {
		p := filepath.Join(dir, name)
		if isExecutable(p) {
			return p, true
		}
	}
	return "", false
}

// Func adapts a plain function to the Locator interface.
type Func func(name string) (string, bool)

// Resolve implements Locator.
func (f Func) Resolve(name string) (string, bool) {
	return f(name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
