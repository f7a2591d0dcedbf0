// Package redisenv runs throwaway redis-server processes for tests.
//
// Each server gets its own temporary workspace (redis.conf, data directory
// and log files) and a free loopback port, and is ready to answer PING when
// New returns. Stop sends SIGTERM, escalates to SIGKILL after a bounded
// wait and removes the workspace. Stop is idempotent and only ever acts in
// the process that created the server.
//
// # Basic Usage
//
//	func TestCache(t *testing.T) {
//	    redisenv.SkipIfNotInstalled(t)
//
//	    srv := redisenv.NewForTest(t) // stopped in t.Cleanup
//	    client := srv.Client()
//	    defer client.Close()
//
//	    if err := client.Set(t.Context(), "scott", "1", 0).Err(); err != nil {
//	        t.Fatal(err)
//	    }
//	}
//
// Outside tests, Run stops the server on every exit path:
//
//	err := redisenv.Run(ctx, func(srv redisenv.Server) error {
//	    return useRedis(srv.ConnectionInfo().URL())
//	})
//
// # Seeded Servers
//
// A Factory with an initializer fills a throwaway server once, keeps its
// dataset and starts every created server from a copy:
//
//	f, err := redisenv.NewFactory(
//	    redisenv.WithInitializer(func(ctx context.Context, c *redis.Client) error {
//	        return c.Set(ctx, "scott", "1", 0).Err()
//	    }),
//	    redisenv.WithCacheDir(filepath.Join(os.TempDir(), "myproject-redis-seed")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	srv, err := f.Create(ctx)
//
// Concurrent first calls to Create, in this or any other process using the
// same cache directory, run the initializer exactly once. ClearCache
// discards the seed.
//
// # Other Processes
//
// Handle returns a JSON-serialisable description of a server. Another
// process can rebuild it with Attach to connect to and observe the server,
// but only the creating process can stop it.
package redisenv
