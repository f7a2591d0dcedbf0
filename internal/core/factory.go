package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/giantswarm/redisenv/internal/fileutil"
	"github.com/giantswarm/redisenv/internal/seedcache"
	"github.com/giantswarm/redisenv/internal/workspace"
)

// Initializer populates a freshly started throwaway server. Whatever it
// writes becomes the seed every cached instance starts from.
type Initializer func(ctx context.Context, client *redis.Client) error

// seedInstanceDir is the caller-owned workspace of the throwaway instance
// inside a seed build directory.
const seedInstanceDir = "instance"

// FactoryConfig configures a Factory.
type FactoryConfig struct {
	// Instance is the template for every instance the factory creates.
	Instance InstanceConfig
	// Initializer enables the seed cache. nil means every Create behaves
	// like NewInstance.
	Initializer Initializer
	// CacheDir is the seed location. Empty means a temporary directory
	// owned by the factory and removed by Close.
	CacheDir string
	// CacheTimeout bounds one seed build including the wait for the lock.
	CacheTimeout time.Duration
}

// Validate checks all FactoryConfig invariants.
func (c FactoryConfig) Validate() error {
	var errs []error
	if err := c.Instance.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Initializer != nil && c.CacheTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cache timeout must be greater than 0, got %s", c.CacheTimeout))
	}
	return errors.Join(errs...)
}

// Factory creates instances from a template, optionally starting each from
// a cached seed. It is safe for concurrent use.
type Factory struct {
	cfg FactoryConfig
	log *slog.Logger

	mu       sync.Mutex
	cache    *seedcache.Cache
	ownedDir string
}

// NewFactory validates cfg. It performs no I/O; the cache directory is
// created on the first Create that needs it.
func NewFactory(cfg FactoryConfig) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Factory{cfg: cfg, log: Logger().With("factory", true)}, nil
}

// Caching reports whether the factory uses a seed.
func (f *Factory) Caching() bool { return f.cfg.Initializer != nil }

// Create returns a new running instance. configure, if non-nil, adjusts
// a copy of the template for this instance only. With caching enabled the
// seed is built on first use and the instance starts from a clone of it;
// the seed takes precedence over the template's CopyDataFrom.
func (f *Factory) Create(ctx context.Context, configure func(*InstanceConfig)) (*Instance, error) {
	cfg := f.cfg.Instance
	if configure != nil {
		configure(&cfg)
	}
	if !f.Caching() {
		return NewInstance(ctx, cfg)
	}

	cache, err := f.seedCache()
	if err != nil {
		return nil, err
	}
	res, err := cache.Ensure(ctx, f.generate)
	if err != nil {
		return nil, fmt.Errorf("ensure seed: %w", err)
	}
	if res.Created {
		f.log.Debug("seed ready", "seed", res.Path)
	}
	cfg.CopyDataFrom = res.Path
	return NewInstance(ctx, cfg)
}

// SeedDir returns where the seed lives, or "" before the first Create
// with caching enabled.
func (f *Factory) SeedDir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		return ""
	}
	return f.cache.SeedDir()
}

// ClearCache deletes the seed so the next Create rebuilds it. A cold or
// disabled cache is not an error.
func (f *Factory) ClearCache(ctx context.Context) error {
	f.mu.Lock()
	cache := f.cache
	f.mu.Unlock()
	if cache == nil {
		if !f.Caching() || f.cfg.CacheDir == "" {
			return nil
		}
		var err error
		if cache, err = f.seedCache(); err != nil {
			return err
		}
	}
	return cache.Clear(ctx)
}

// Close removes a factory-owned cache directory. Instances already created
// keep their own copies of the data.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownedDir == "" {
		return nil
	}
	err := fileutil.RemoveDir(f.ownedDir)
	f.ownedDir = ""
	f.cache = nil
	return err
}

func (f *Factory) seedCache() (*seedcache.Cache, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache != nil {
		return f.cache, nil
	}

	dir := f.cfg.CacheDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "redisenv-cache-*")
		if err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		dir = tmp
		f.ownedDir = tmp
	}
	cache, err := seedcache.New(seedcache.Config{
		Dir:     dir,
		Timeout: f.cfg.CacheTimeout,
		Logger:  f.log,
	})
	if err != nil {
		return nil, err
	}
	f.cache = cache
	return cache, nil
}

// generate starts a throwaway instance in buildDir, runs the initializer
// against it, persists the dataset with SAVE and stops it. The instance's
// workspace is caller-owned so its data directory survives the stop and
// can be published as the seed.
func (f *Factory) generate(ctx context.Context, buildDir string) (_ string, retErr error) {
	cfg := f.cfg.Instance
	cfg.BaseDir = filepath.Join(buildDir, seedInstanceDir)
	cfg.Port = 0

	inst, err := NewInstance(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("start seed instance: %w", err)
	}
	defer func() {
		if err := inst.Stop(context.Background()); err != nil {
			retErr = errors.Join(retErr, fmt.Errorf("stop seed instance: %w", err))
		}
	}()

	client := inst.Client()
	defer client.Close()

	if err := f.cfg.Initializer(ctx, client); err != nil {
		return "", fmt.Errorf("run initializer: %w", err)
	}
	if err := client.Save(ctx).Err(); err != nil {
		return "", fmt.Errorf("save seed dataset: %w", err)
	}
	return filepath.Join(cfg.BaseDir, workspace.DataDirName), nil
}
