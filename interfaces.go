package redisenv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Server is a running redis-server fixture.
//
// A Server is owned by the process that created it. Stop called from any
// other process, including one that rebuilt the Server with Attach, returns
// nil without signalling the server or touching its workspace.
type Server interface {
	// ID returns an identifier unique within the creating process.
	ID() string

	// ConnectionInfo returns the host, port and database index to connect to.
	ConnectionInfo() ConnectionInfo

	// Client returns a new go-redis client for this server. The caller must
	// close it.
	Client() *redis.Client

	// BaseDir returns the workspace root holding redis.conf, the log files
	// and the data directory.
	BaseDir() string

	// DataDir returns the server's working directory, where dump.rdb is
	// written. Pass it to WithCopyDataFrom to clone this server's dataset
	// into another one.
	DataDir() string

	// CopiedFrom returns the directory the data was cloned from, or "".
	CopiedFrom() string

	// Pid returns the server's process id. It never changes.
	Pid() int

	// IsAlive reports whether the server process is running. For a Server
	// built with Attach it also requires the server to answer PING, so a
	// recycled pid is not mistaken for the server.
	IsAlive() bool

	// Handle returns the serialisable identity of this server for Attach.
	Handle() Handle

	// Stop terminates the server and waits for it to exit, escalating to
	// SIGKILL after the stop timeout. A temporary workspace is removed; a
	// directory given with WithBaseDir is kept. Stop is idempotent, a server
	// that already exited is not an error, and outside the owner process it
	// does nothing.
	//
	// ctx shortens the graceful phase but never prevents the stop. With a
	// ctx that is already done the server is killed almost at once, and
	// Stop still returns nil once it is gone.
	Stop(ctx context.Context) error
}

// Factory creates servers from a shared template. When configured with
// WithInitializer it runs the initializer once against a throwaway server,
// keeps the resulting dataset as a seed and starts every created server
// from a copy of it.
type Factory interface {
	// Create starts a new server. opts apply on top of the factory template
	// for this server only. The first Create on a cold cache builds the seed;
	// concurrent callers, including other processes sharing the cache
	// directory, wait for that single build.
	Create(ctx context.Context, opts ...Option) (Server, error)

	// Caching reports whether the factory starts servers from a seed.
	Caching() bool

	// SeedDir returns the seed location, or "" if caching is disabled or no
	// Create has run yet.
	SeedDir() string

	// ClearCache deletes the seed. The next Create rebuilds it. Running
	// servers are unaffected. A cold cache is not an error.
	ClearCache(ctx context.Context) error

	// Close removes the factory's temporary cache directory when no
	// WithCacheDir was given. Created servers keep running.
	Close() error
}
