package redisenv

import "time"

// Default configuration values for New and NewFactory.
const (
	// DefaultBinary is the executable name resolved through the locator.
	DefaultBinary = "redis-server"

	// DefaultStartTimeout is the maximum time one start attempt may take to
	// answer PING.
	DefaultStartTimeout = 10 * time.Second

	// DefaultStopTimeout is the grace period after SIGTERM. SIGKILL follows
	// after min(5s, DefaultStopTimeout).
	DefaultStopTimeout = 10 * time.Second

	// DefaultMaxStartRetries is the number of start attempts when the server
	// exits during startup on an allocated port, typically because another
	// process took the port first.
	DefaultMaxStartRetries = 3

	// DefaultCacheTimeout bounds one seed build: waiting for the cache lock,
	// starting the throwaway server, running the initializer and saving.
	DefaultCacheTimeout = 2 * time.Minute
)
