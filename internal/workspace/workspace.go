package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/giantswarm/redisenv/internal/fileutil"
)

// DataDirName is the server's working data directory inside the workspace.
const DataDirName = "data"

// tempPattern names instance-owned workspaces.
const tempPattern = "redisenv-*"

// Options configures Create.
type Options struct {
	// Dir is a caller-chosen workspace root. It is created if missing and is
	// never removed by Destroy. Empty means a fresh temporary directory.
	Dir string
	// TempParent is where temporary workspaces are created. Empty means
	// os.TempDir().
	TempParent string
	// CopyFrom is a data directory whose contents are cloned into the new
	// workspace's data directory.
	CopyFrom string
}

// Workspace is one instance's directory tree.
type Workspace struct {
	root  string
	owned bool

	mu        sync.Mutex
	destroyed bool
}

// Create prepares a workspace. On failure nothing created by this call is
// left behind.
func Create(opts Options) (*Workspace, error) {
	ws, err := newRoot(opts)
	if err != nil {
		return nil, err
	}
	if err := ws.populate(opts.CopyFrom); err != nil {
		if destroyErr := ws.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("%w (cleanup: %v)", err, destroyErr)
		}
		return nil, err
	}
	return ws, nil
}

func newRoot(opts Options) (*Workspace, error) {
	if opts.Dir != "" {
		abs, err := filepath.Abs(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace dir %s: %w", opts.Dir, err)
		}
		if err := fileutil.EnsureDir(abs); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
		return &Workspace{root: abs}, nil
	}

	parent := opts.TempParent
	if parent == "" {
		parent = os.TempDir()
	}
	if err := fileutil.EnsureDir(parent); err != nil {
		return nil, fmt.Errorf("create workspace parent: %w", err)
	}
	root, err := os.MkdirTemp(parent, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("create temporary workspace: %w", err)
	}
	return &Workspace{root: root, owned: true}, nil
}

func (w *Workspace) populate(copyFrom string) error {
	if copyFrom == "" {
		if err := fileutil.EnsureDir(w.DataDir()); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		return nil
	}
	if err := fileutil.CopyDir(copyFrom, w.DataDir()); err != nil {
		return fmt.Errorf("copy data from %s: %w", copyFrom, err)
	}
	return nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// DataDir returns the server data directory.
func (w *Workspace) DataDir() string { return filepath.Join(w.root, DataDirName) }

// Owned reports whether Destroy removes the directory.
func (w *Workspace) Owned() bool { return w.owned }

// Destroy removes an owned workspace. It is idempotent and a directory that
// is already gone is not an error. Caller-chosen directories are kept.
func (w *Workspace) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return nil
	}
	if w.owned {
		if err := fileutil.RemoveDir(w.root); err != nil {
			return err
		}
	}
	w.destroyed = true
	return nil
}

// Open returns a Workspace for an existing directory without touching the
// filesystem. It is used to rebuild an instance from a handle.
func Open(root string, owned bool) *Workspace {
	return &Workspace{root: root, owned: owned}
}
