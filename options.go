package redisenv

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("redisenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("redisenv: %s must not be empty", name))
	}
}

// Option configures a server started by New, NewForTest, Run or
// Factory.Create.
//
// Several With* functions panic on invalid input (empty paths, non-positive
// durations, out-of-range ports). Option values are typically constants, so
// an invalid value is a programmer error; the pattern mirrors
// [regexp.MustCompile]. Inconsistencies only visible in combination, such
// as a reserved directive passed to WithConfig, are reported as
// ErrInvalidConfig by the constructor instead.
type Option func(*serverConfig)

// WithBinary sets the redis-server executable: a bare name resolved through
// the locator, or a path.
//
// Default: "redis-server".
//
// Panics if binary is empty.
func WithBinary(binary string) Option {
	requireNonEmpty("redis-server binary", binary)
	return func(c *serverConfig) {
		c.Binary = binary
	}
}

// WithLocator sets how the binary is resolved. Tests use it to substitute a
// fake binary without changing PATH.
//
// Default: DefaultLocator().
//
// Panics if l is nil.
func WithLocator(l Locator) Option {
	if l == nil {
		panic("redisenv: locator must not be nil")
	}
	return func(c *serverConfig) {
		c.Locator = l
	}
}

// WithBaseDir makes dir the server's workspace instead of a fresh
// temporary directory. The directory is created if missing and is kept
// after Stop, so its data subdirectory can seed another server.
//
// Panics if dir is empty.
func WithBaseDir(dir string) Option {
	requireNonEmpty("base directory", dir)
	return func(c *serverConfig) {
		c.BaseDir = dir
	}
}

// WithTempDir sets the parent of temporary workspaces.
//
// Default: os.TempDir().
//
// Panics if dir is empty.
func WithTempDir(dir string) Option {
	requireNonEmpty("temp directory", dir)
	return func(c *serverConfig) {
		c.TempParent = dir
	}
}

// WithCopyDataFrom clones dir into the workspace's data directory before
// the server starts. dir is usually another server's DataDir after Stop.
//
// Panics if dir is empty.
func WithCopyDataFrom(dir string) Option {
	requireNonEmpty("copy-data-from directory", dir)
	return func(c *serverConfig) {
		c.CopyDataFrom = dir
	}
}

// WithPort sets a fixed listen port. Without it a free port is allocated.
// A fixed port is never retried on startup failure.
//
// Panics if port is not in 1..65535.
func WithPort(port int) Option {
	if port <= 0 || port > 65535 {
		panic(fmt.Sprintf("redisenv: port must be in 1..65535, got %d", port))
	}
	return func(c *serverConfig) {
		c.Port = port
	}
}

// WithBind sets the listen address. It is also the host in ConnectionInfo.
// An allocated port is checked for availability on this same address, so
// "::1" or "0.0.0.0" get a port that is free there. A single address is
// expected; it is written to the bind directive as one argument.
//
// Default: "127.0.0.1".
//
// Panics if addr is empty.
func WithBind(addr string) Option {
	requireNonEmpty("bind address", addr)
	return func(c *serverConfig) {
		c.Server.Bind = addr
	}
}

// WithDatabases sets the number of databases.
//
// Default: the server's own default (16).
//
// Panics if n <= 0.
func WithDatabases(n int) Option {
	requirePositive("databases", n)
	return func(c *serverConfig) {
		c.Server.Databases = n
	}
}

// WithDBFilename sets the name of the RDB file inside the data directory.
//
// Default: "dump.rdb".
//
// Panics if name is empty.
func WithDBFilename(name string) Option {
	requireNonEmpty("dbfilename", name)
	return func(c *serverConfig) {
		c.Server.DBFilename = name
	}
}

// WithConfig adds a redis.conf directive with its arguments, for example
// WithConfig("appendonly", "yes"), WithConfig("save", "900", "1", "300", "10")
// or WithConfig("rename-command", "FLUSHALL", ""). Each argument is written
// as a separate token, quoted when needed, exactly as redis-server splits
// the line; pass WithConfig("save", "") to disable snapshots. Keys are
// case-insensitive and a later call replaces every argument of an earlier
// one. Directives redisenv manages (bind, port, dir, dbfilename, logfile,
// databases, daemonize) are rejected with ErrInvalidConfig; use the
// dedicated options.
//
// Panics if key is empty.
func WithConfig(key string, args ...string) Option {
	requireNonEmpty("config key", key)
	args = slices.Clone(args)
	return func(c *serverConfig) {
		// The map may be shared with a factory template.
		extra := maps.Clone(c.Server.Extra)
		if extra == nil {
			extra = make(map[string][]string)
		}
		extra[key] = args
		c.Server.Extra = extra
	}
}

// WithStartTimeout sets how long one start attempt may take to answer PING.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStartTimeout(d time.Duration) Option {
	requirePositive("start timeout", d)
	return func(c *serverConfig) {
		c.StartTimeout = d
	}
}

// WithStopTimeout sets the grace period Stop allows after SIGTERM.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *serverConfig) {
		c.StopTimeout = d
	}
}

// WithMaxStartRetries sets the number of start attempts when the server
// exits during startup on an allocated port.
//
// Default: 3.
//
// Panics if n <= 0.
func WithMaxStartRetries(n int) Option {
	requirePositive("max start retries", n)
	return func(c *serverConfig) {
		c.MaxStartRetries = n
	}
}

// FactoryOption configures a Factory during construction via NewFactory.
type FactoryOption func(*factoryConfig)

// WithServerOptions sets the template every created server starts from.
// Options passed to Create apply on top of it.
func WithServerOptions(opts ...Option) FactoryOption {
	return func(c *factoryConfig) {
		cfg := serverConfig{c.Instance}
		applyOptions(&cfg, opts)
		c.Instance = cfg.InstanceConfig
	}
}

// WithInitializer enables the seed cache. fn runs once per cache epoch
// against a throwaway server; its dataset is saved and every created
// server starts from a copy of it. If the template sets WithCopyDataFrom,
// the throwaway server starts from that data and the seed replaces it for
// created servers.
//
// Panics if fn is nil.
func WithInitializer(fn Initializer) FactoryOption {
	if fn == nil {
		panic("redisenv: initializer must not be nil")
	}
	return func(c *factoryConfig) {
		c.Initializer = fn
	}
}

// WithCacheDir sets where the seed is kept. Factories in different
// processes sharing a cache directory build the seed once between them.
// The directory survives Close.
//
// Default: a temporary directory removed by Close.
//
// Panics if dir is empty.
func WithCacheDir(dir string) FactoryOption {
	requireNonEmpty("cache directory", dir)
	return func(c *factoryConfig) {
		c.CacheDir = dir
	}
}

// WithCacheTimeout bounds one seed build including the wait for another
// builder.
//
// Default: 2 minutes.
//
// Panics if d <= 0.
func WithCacheTimeout(d time.Duration) FactoryOption {
	requirePositive("cache timeout", d)
	return func(c *factoryConfig) {
		c.CacheTimeout = d
	}
}
