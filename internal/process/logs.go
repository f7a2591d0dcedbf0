package process

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LogFiles holds the stdout/stderr capture files of a child.
type LogFiles struct {
	stdout *os.File
	stderr *os.File
	dir    string
	name   string
}

// NewLogFiles creates <dir>/<name>-stdout.log and <dir>/<name>-stderr.log.
func NewLogFiles(dir, name string) (LogFiles, error) {
	l := LogFiles{dir: dir, name: name}
	stdout, err := os.Create(l.StdoutPath())
	if err != nil {
		return LogFiles{}, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdout.Close()
		return LogFiles{}, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdout = stdout
	l.stderr = stderr
	return l, nil
}

// StdoutPath returns the stdout capture path.
func (l LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.name+"-stdout.log")
}

// StderrPath returns the stderr capture path.
func (l LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.name+"-stderr.log")
}

// Close closes both handles. Safe to call more than once.
func (l *LogFiles) Close() {
	if l.stdout != nil {
		_ = l.stdout.Close()
		l.stdout = nil
	}
	if l.stderr != nil {
		_ = l.stderr.Close()
		l.stderr = nil
	}
}

// Tail returns up to maxBytes from the end of each capture file, stderr
// first, for inclusion in startup errors. Missing files are skipped.
func (l LogFiles) Tail(maxBytes int64) string {
	if l.dir == "" {
		return ""
	}
	var parts []string
	for _, path := range []string{l.StderrPath(), l.StdoutPath()} {
		s := tailFile(path, maxBytes)
		if s != "" {
			parts = append(parts, filepath.Base(path)+":\n"+s)
		}
	}
	return strings.Join(parts, "\n")
}

func tailFile(path string, maxBytes int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ""
	}
	if off := info.Size() - maxBytes; off > 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			return ""
		}
	}
	b, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
