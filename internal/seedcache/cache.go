package seedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/redisenv/internal/fileutil"
)

const (
	seedDirName     = "seed"
	lockFileName    = "seed.lock"
	buildDirPattern = "seed-build-*"
)

// Generator produces a seed. It receives a private scratch directory and
// returns the data directory it populated, which must lie inside that
// scratch directory.
type Generator func(ctx context.Context, buildDir string) (dataDir string, err error)

// Config configures a Cache.
type Config struct {
	Dir     string        // cache location; created on first use
	Timeout time.Duration // upper bound for one generation including lock wait; zero means none
	Logger  *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Result describes the seed returned by Ensure.
type Result struct {
	Path    string // seed data directory
	Created bool   // the generator ran for this call or for a concurrent call it joined
}

// Cache manages the seed in one directory. It is safe for concurrent use,
// and several processes may share one directory.
//
// The directory holds at most the published seed, the lock file and
// transient build directories:
//
//	<dir>/seed            the published seed, present only when complete
//	<dir>/seed.lock       flock guarding builds across processes
//	<dir>/seed-build-*    scratch space of a build in progress
//
// A seed is never modified in place. Clear removes it and the next Ensure
// builds a new one.
type Cache struct {
	cfg   Config
	group singleflight.Group
}

// New returns a Cache for cfg.Dir. It performs no I/O.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("invalid seed cache config: dir must not be empty")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("invalid seed cache config: timeout must not be negative, got %v", cfg.Timeout)
	}
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve seed cache dir %s: %w", cfg.Dir, err)
	}
	cfg.Dir = abs
	return &Cache{cfg: cfg}, nil
}

// Dir returns the cache location.
func (c *Cache) Dir() string { return c.cfg.Dir }

// SeedDir returns where the seed lives when the cache is warm.
func (c *Cache) SeedDir() string { return filepath.Join(c.cfg.Dir, seedDirName) }

func (c *Cache) lockPath() string { return filepath.Join(c.cfg.Dir, lockFileName) }

// Ensure returns the seed, running gen to build it if the cache is cold.
// However many callers race on a cold cache, gen runs once; a failed gen
// leaves the cache cold so the next call retries.
//
// Deduplication happens in two layers:
//
//   - Within this process, callers are merged by a singleflight group, so
//     only one goroutine goes on to contend for the file lock. Joined
//     callers share its Result, including Created.
//   - Across processes, that goroutine takes an exclusive flock on
//     seed.lock and checks for the seed again before building, since a
//     process that held the lock first may already have published it.
//
// Warm calls return after a single stat and take no lock. This is safe
// because a seed only appears through an atomic rename of a complete build
// directory, so a reader never sees a partial seed.
//
// The build runs on a context detached from ctx and bounded by
// Config.Timeout instead, because other callers may be waiting on the same
// build. Canceling ctx only makes this caller stop waiting; the build and
// the callers that joined it carry on.
func (c *Cache) Ensure(ctx context.Context, gen Generator) (Result, error) {
	if gen == nil {
		return Result{}, errors.New("seed generator must not be nil")
	}
	if ok, err := c.warm(); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Path: c.SeedDir()}, nil
	}

	// The build outlives any single waiter; Timeout bounds it instead.
	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(seedDirName, func() (any, error) {
		return c.ensureLocked(buildCtx, gen)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		r, _ := res.Val.(Result)
		return r, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("wait for seed: %w", ctx.Err())
	}
}

func (c *Cache) warm() (bool, error) {
	ok, err := fileutil.Exists(c.SeedDir())
	if err != nil {
		return false, fmt.Errorf("stat seed %s: %w", c.SeedDir(), err)
	}
	return ok, nil
}

func (c *Cache) ensureLocked(ctx context.Context, gen Generator) (Result, error) {
	logger := c.cfg.logger()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := fileutil.EnsureDir(c.cfg.Dir); err != nil {
		return Result{}, fmt.Errorf("create seed cache dir: %w", err)
	}

	logger.Debug("acquiring seed lock", "lock_path", c.lockPath())
	lock, err := acquireFileLock(ctx, c.lockPath())
	if err != nil {
		return Result{}, fmt.Errorf("acquire lock: %w", err)
	}
	defer releaseFileLock(logger, lock)

	// Another process may have built it while we waited.
	if ok, err := c.warm(); err != nil {
		return Result{}, err
	} else if ok {
		logger.Debug("using seed created while waiting", "seed", c.SeedDir())
		return Result{Path: c.SeedDir()}, nil
	}

	logger.Info("building seed", "cache_dir", c.cfg.Dir)
	start := time.Now()
	if err := c.build(ctx, gen); err != nil {
		return Result{}, fmt.Errorf("build seed: %w", err)
	}
	logger.Info("seed built", "seed", c.SeedDir(), "elapsed", time.Since(start).Round(time.Millisecond))
	return Result{Path: c.SeedDir(), Created: true}, nil
}

func (c *Cache) build(ctx context.Context, gen Generator) error {
	logger := c.cfg.logger()
	buildDir, err := os.MkdirTemp(c.cfg.Dir, buildDirPattern)
	if err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(buildDir); rmErr != nil {
			logger.Debug("failed to remove build dir", "dir", buildDir, "err", rmErr)
		}
	}()

	dataDir, err := gen(ctx, buildDir)
	if err != nil {
		return err
	}
	if !within(buildDir, dataDir) {
		return fmt.Errorf("generator returned %s outside build dir %s", dataDir, buildDir)
	}
	info, err := os.Stat(dataDir)
	if err != nil {
		return fmt.Errorf("stat generated data: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("generated data %s: %w", dataDir, fileutil.ErrNotDir)
	}
	if err := os.Rename(dataDir, c.SeedDir()); err != nil {
		return fmt.Errorf("publish seed: %w", err)
	}
	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Clear deletes the seed, starting a new epoch. A cold cache is not an
// error.
func (c *Cache) Clear(ctx context.Context) error {
	ok, err := fileutil.Exists(c.cfg.Dir)
	if err != nil {
		return fmt.Errorf("stat seed cache dir: %w", err)
	}
	if !ok {
		return nil
	}

	logger := c.cfg.logger()
	lock, err := acquireFileLock(ctx, c.lockPath())
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer releaseFileLock(logger, lock)

	if err := fileutil.RemoveDir(c.SeedDir()); err != nil {
		return fmt.Errorf("clear seed: %w", err)
	}
	logger.Debug("seed cleared", "seed", c.SeedDir())
	return nil
}
