package redisenv

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/giantswarm/redisenv/internal/core"
	"github.com/giantswarm/redisenv/internal/locator"
)

// ConnectionInfo describes where a server listens: a loopback host, a
// port and the database index. Addr and URL format it for clients.
type ConnectionInfo = core.ConnectionInfo

// Handle is the serialisable identity of a server. It marshals to JSON so
// it can be passed to another process and turned back into a Server with
// Attach.
type Handle = core.Handle

// Initializer populates the throwaway server a Factory builds its seed
// from. Everything it writes is present in every server the factory
// creates afterwards.
type Initializer = core.Initializer

// Locator resolves an executable name to a path.
type Locator = locator.Locator

// LocatorFunc adapts a function to a Locator.
type LocatorFunc = locator.Func

// DefaultLocator returns the locator used when WithLocator is not given:
// PATH first, then the usual install directories.
func DefaultLocator() Locator { return locator.Default() }

// Compile-time interface satisfaction checks.
var (
	_ Server  = (*serverWrapper)(nil)
	_ Factory = (*factoryWrapper)(nil)
)

// serverWrapper wraps core.Instance to implement the Server interface.
//
// The core.Instance is stored as a named (unexported) field rather than
// embedded so callers cannot reach internal methods with a type assertion.
type serverWrapper struct {
	inst *core.Instance
}

func (w *serverWrapper) ID() string                     { return w.inst.ID() }
func (w *serverWrapper) ConnectionInfo() ConnectionInfo { return w.inst.ConnectionInfo() }
func (w *serverWrapper) Client() *redis.Client          { return w.inst.Client() }
func (w *serverWrapper) BaseDir() string                { return w.inst.BaseDir() }
func (w *serverWrapper) DataDir() string                { return w.inst.DataDir() }
func (w *serverWrapper) CopiedFrom() string             { return w.inst.CopiedFrom() }
func (w *serverWrapper) Pid() int                       { return w.inst.Pid() }
func (w *serverWrapper) IsAlive() bool                  { return w.inst.IsAlive() }
func (w *serverWrapper) Handle() Handle                 { return w.inst.Handle() }

func (w *serverWrapper) Stop(ctx context.Context) error { return w.inst.Stop(ctx) }

// New starts a redis-server in a fresh workspace on a free port and
// returns once it answers PING. On error no process, workspace or port
// reservation is left behind.
//
// ctx bounds startup only. The server runs until Stop.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Server interface by design for testability (mockable).
func New(ctx context.Context, opts ...Option) (Server, error) {
	cfg := defaultServerConfig()
	applyOptions(&cfg, opts)
	inst, err := core.NewInstance(ctx, cfg.InstanceConfig)
	if err != nil {
		return nil, err
	}
	return &serverWrapper{inst: inst}, nil
}

// NewForTest starts a server for the duration of a test. It fails the test
// if the server cannot be started and stops it in tb.Cleanup.
//
//nolint:ireturn // Returns Server interface by design for testability (mockable).
func NewForTest(tb testing.TB, opts ...Option) Server {
	tb.Helper()
	srv, err := New(tb.Context(), opts...)
	if err != nil {
		tb.Fatalf("start redis-server: %v", err)
	}
	tb.Cleanup(func() {
		if err := srv.Stop(context.Background()); err != nil {
			tb.Errorf("stop redis-server: %v", err)
		}
	})
	return srv
}

// Run starts a server, calls fn with it and stops the server on every exit
// path of fn, including a panic. The stop error is joined to fn's error.
func Run(ctx context.Context, fn func(Server) error, opts ...Option) (retErr error) {
	srv, err := New(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
			retErr = errors.Join(retErr, err)
		}
	}()
	return fn(srv)
}

// Attach rebuilds a Server from a Handle obtained in another process. The
// result can connect to and observe the server. Its Stop terminates the
// server only when called in the process that created it. Only
// WithStopTimeout is honoured among opts.
//
//nolint:ireturn // Returns Server interface by design for testability (mockable).
func Attach(h Handle, opts ...Option) (Server, error) {
	cfg := defaultServerConfig()
	applyOptions(&cfg, opts)
	inst, err := core.Attach(h, cfg.StopTimeout)
	if err != nil {
		return nil, err
	}
	return &serverWrapper{inst: inst}, nil
}

// factoryWrapper wraps core.Factory to implement the Factory interface.
type factoryWrapper struct {
	f *core.Factory
}

//nolint:ireturn // Returns Server interface by design for testability (mockable).
func (w *factoryWrapper) Create(ctx context.Context, opts ...Option) (Server, error) {
	var configure func(*core.InstanceConfig)
	if len(opts) > 0 {
		configure = func(c *core.InstanceConfig) {
			cfg := serverConfig{*c}
			applyOptions(&cfg, opts)
			*c = cfg.InstanceConfig
		}
	}
	inst, err := w.f.Create(ctx, configure)
	if err != nil {
		return nil, err
	}
	return &serverWrapper{inst: inst}, nil
}

func (w *factoryWrapper) Caching() bool                        { return w.f.Caching() }
func (w *factoryWrapper) SeedDir() string                      { return w.f.SeedDir() }
func (w *factoryWrapper) ClearCache(ctx context.Context) error { return w.f.ClearCache(ctx) }
func (w *factoryWrapper) Close() error                         { return w.f.Close() }

// NewFactory returns a Factory. It performs no I/O; the seed is built on
// the first Create. It returns ErrInvalidConfig if the combined options
// are inconsistent.
//
// Panics if any option receives an invalid value.
//
//nolint:ireturn // Returns Factory interface by design for testability (mockable).
func NewFactory(opts ...FactoryOption) (Factory, error) {
	cfg := defaultFactoryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	f, err := core.NewFactory(cfg.FactoryConfig)
	if err != nil {
		return nil, err
	}
	return &factoryWrapper{f: f}, nil
}
