package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/redisenv/internal/locator"
	"github.com/giantswarm/redisenv/internal/netutil"
	"github.com/giantswarm/redisenv/internal/process"
	"github.com/giantswarm/redisenv/internal/redisconf"
	"github.com/giantswarm/redisenv/internal/redisserver"
	"github.com/giantswarm/redisenv/internal/workspace"
)

// livenessProbeTimeout bounds the PING used to confirm an attached pid.
const livenessProbeTimeout = time.Second

// sharedPorts is the registry used by instances that do not bring their own.
var sharedPorts = sync.OnceValue(func() *netutil.PortRegistry {
	return netutil.NewPortRegistry(Logger())
})

func resolveBinary(loc locator.Locator, name string) (string, error) {
	path, ok := loc.Resolve(name)
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", name, ErrNotFound)
	}
	return path, nil
}

// launchParams carries what one launch needs.
type launchParams struct {
	cfg    InstanceConfig
	binary string
	conf   redisconf.Config
	ws     *workspace.Workspace
	ports  *netutil.PortRegistry
	log    *slog.Logger
}

// launch starts a ready server in p.ws. When the server exits during startup
// on an allocated port, most likely because another program took the port
// between probe and bind, it retries on a fresh port. The returned port is
// registered in p.ports; on error nothing stays registered.
func launch(ctx context.Context, p launchParams) (*redisserver.Server, int, error) {
	fixed := p.cfg.Port > 0
	if fixed {
		if err := p.ports.Reserve(p.cfg.Port); err != nil {
			return nil, 0, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxStartRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = errors.Join(fmt.Errorf("start canceled after %d attempts: %w", attempt-1, err), lastErr)
			break
		}

		port := p.cfg.Port
		if !fixed {
			var err error
			if port, err = p.ports.Allocate(p.conf.Bind); err != nil {
				return nil, 0, fmt.Errorf("allocate port: %w", err)
			}
		}

		srv, err := startOnce(ctx, p, port)
		if err == nil {
			if attempt > 1 {
				p.log.Info("redis-server started after retry", "attempt", attempt, "port", port)
			}
			return srv, port, nil
		}
		lastErr = err
		if fixed {
			break
		}
		p.ports.Release(port)
		if !errors.Is(err, process.ErrProcessExited) {
			break
		}
		p.log.Warn("redis-server exited during startup, retrying on a new port",
			"attempt", attempt,
			"max_retries", p.cfg.MaxStartRetries,
			"port", port,
			"error", err,
		)
	}

	if fixed {
		p.ports.Release(p.cfg.Port)
	}
	return nil, 0, lastErr
}

// startOnce runs one start attempt on port. A failed attempt leaves no
// process behind; the port is left to the caller.
func startOnce(ctx context.Context, p launchParams, port int) (_ *redisserver.Server, retErr error) {
	conf := p.conf
	conf.Port = port
	conf.Dir = p.ws.DataDir()

	srv, err := redisserver.New(redisserver.Config{
		Binary:  p.binary,
		WorkDir: p.ws.Root(),
		Conf:    conf,
		Logger:  p.log,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	defer func() {
		if retErr == nil {
			return
		}
		if err := srv.Stop(p.cfg.StopTimeout); err != nil {
			p.log.Warn("cleanup partially-started redis-server", "pid", srv.Pid(), "error", err)
			return
		}
		srv.Close()
	}()
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	if err := srv.WaitReady(ctx, p.cfg.StartTimeout); err != nil {
		if errors.Is(err, process.ErrNotReady) {
			return nil, fmt.Errorf("%w: %w", ErrStartupTimeout, err)
		}
		return nil, err
	}
	return srv, nil
}

// supervisor owns the OS-visible resources of a started instance: the
// server process, its workspace and its port. It never references the
// Instance, so it can run as the Instance's cleanup.
type supervisor struct {
	log         *slog.Logger
	ownerPID    int
	currentPID  func() int
	stopTimeout time.Duration
	addr        string
	pid         int

	srv   *redisserver.Server // nil for attached handles
	ws    *workspace.Workspace
	ports *netutil.PortRegistry // nil for attached handles
	port  int

	// mu serializes stop. stopped is read without it so alive does not
	// wait for a stop in progress.
	mu      sync.Mutex
	stopped atomic.Bool
}

func (s *supervisor) isOwner() bool {
	return s.currentPID() == s.ownerPID
}

// stop terminates the server, waits until it is gone, then removes the
// workspace and releases the port. It reports whether the supervisor is
// stopped afterwards. Outside the owner process it does nothing and
// reports false.
func (s *supervisor) stop(timeout time.Duration) (bool, error) {
	if !s.isOwner() {
		s.log.Debug("stop outside owner process ignored", "owner_pid", s.ownerPID, "pid", s.currentPID())
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() {
		return true, nil
	}

	if err := s.terminate(timeout); err != nil {
		// The process may still be running; keep the workspace for it.
		return false, fmt.Errorf("stop redis-server (pid %d): %w", s.pid, err)
	}
	s.stopped.Store(true)

	if s.ports != nil {
		s.ports.Release(s.port)
	}
	if err := s.ws.Destroy(); err != nil {
		return true, fmt.Errorf("remove workspace: %w", err)
	}
	s.log.Debug("instance stopped", "pid", s.pid, "base_dir", s.ws.Root())
	return true, nil
}

func (s *supervisor) terminate(timeout time.Duration) error {
	if s.srv == nil {
		return process.Terminate(s.pid, timeout)
	}
	if err := s.srv.Stop(timeout); err != nil {
		return err
	}
	s.srv.Close()
	return nil
}

// alive reports whether the supervised server is still running. For a
// server this process started, the exit of the child is observed directly,
// so a recycled pid cannot be mistaken for it. For an attached handle the
// pid must exist and the address must answer PING.
//
// alive never waits for a concurrent stop. While stop is still signalling
// the server it reports the true process state, which can be running.
func (s *supervisor) alive() bool {
	if s.stopped.Load() {
		return false
	}
	if s.srv != nil {
		return s.srv.Running()
	}
	if !process.Alive(s.pid) {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), livenessProbeTimeout)
	defer cancel()
	return redisserver.Probe(ctx, s.addr) == nil
}

// finalStop is the best-effort cleanup run when an Instance becomes
// unreachable without Stop.
func finalStop(s *supervisor) {
	if stopped, err := s.stop(s.stopTimeout); err != nil {
		s.log.Warn("stop of unreachable instance failed", "pid", s.pid, "error", err)
	} else if stopped {
		s.log.Warn("instance was garbage collected without Stop", "pid", s.pid)
	}
}
