package redisserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/giantswarm/redisenv/internal/fileutil"
	"github.com/giantswarm/redisenv/internal/process"
	"github.com/giantswarm/redisenv/internal/redisconf"
	"github.com/redis/go-redis/v9"
)

// ProcessName labels the child in logs and names its capture files.
const ProcessName = "redis-server"

// ConfFileName is the configuration file written into the workspace.
const ConfFileName = "redis.conf"

// readinessPollInterval is the pause between PING attempts.
const readinessPollInterval = 10 * time.Millisecond

// probeTimeout bounds the dial and each read/write of a PING. Early
// attempts fail fast with connection refused.
const probeTimeout = time.Second

// logTailBytes is how much captured output is attached to startup errors.
const logTailBytes = 2048

// Config describes one server.
type Config struct {
	Binary  string           // absolute path to redis-server
	WorkDir string           // workspace root; holds redis.conf and log captures
	Conf    redisconf.Config // merged configuration; Port and Dir must be set
	Logger  *slog.Logger
}

func (c Config) validate() error {
	var errs []error
	if c.Binary == "" {
		errs = append(errs, errors.New("binary path must not be empty"))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("work dir must not be empty"))
	}
	if err := c.Conf.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Server manages a redis-server process.
type Server struct {
	config Config
	proc   *process.Process
	log    *slog.Logger
}

// New validates cfg. It performs no I/O.
func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid redis-server config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		proc:   process.New(ProcessName, logger),
		log:    logger,
	}, nil
}

// ConfPath returns where redis.conf is written.
func (s *Server) ConfPath() string {
	return filepath.Join(s.config.WorkDir, ConfFileName)
}

// Addr returns host:port of the server.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Conf.Bind, strconv.Itoa(s.config.Conf.Port))
}

// Start writes redis.conf and launches the server. The server outlives ctx;
// ctx only aborts a launch that has not happened yet.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start redis-server: %w", err)
	}
	if err := fileutil.EnsureDir(s.config.Conf.Dir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.ConfPath(), []byte(s.config.Conf.Render()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ConfFileName, err)
	}

	cmd := exec.Command(s.config.Binary, s.ConfPath()) //nolint:gosec // binary comes from the locator or the caller
	if err := s.proc.Start(cmd, s.config.WorkDir); err != nil {
		return fmt.Errorf("launch redis-server: %w", err)
	}
	s.log.Debug("redis-server launched", "pid", s.proc.Pid(), "addr", s.Addr())
	return nil
}

// WaitReady polls PING until the server answers, it exits, or timeout
// passes. The error of the last failed PING and the tail of the captured
// output are included when readiness fails.
//
// Exit and timeout are told apart. If the child exits first, for instance
// on a config error or because the port was taken between allocation and
// bind, the error wraps process.ErrProcessExited and callers may retry on
// another port. If timeout passes with the child still running the error
// wraps process.ErrNotReady and the child is left for the caller to stop.
// A canceled ctx is never reported as either of those.
func (s *Server) WaitReady(ctx context.Context, timeout time.Duration) error {
	client := NewClient(s.Addr(), 0)
	defer client.Close()

	var lastErr error
	err := process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      readinessPollInterval,
		Timeout:       timeout,
		Name:          ProcessName,
		Addr:          s.Addr(),
		Logger:        s.log,
		ProcessExited: s.proc.Exited(),
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		if err := client.Ping(checkCtx).Err(); err != nil {
			lastErr = err
			s.log.Debug("redis-server ping", "addr", s.Addr(), "attempt", attempt, "error", err)
			return false, nil
		}
		return true, nil
	})
	if err == nil {
		return nil
	}
	if lastErr != nil {
		err = fmt.Errorf("%w (last ping: %v)", err, lastErr)
	}
	if tail := s.proc.Logs().Tail(logTailBytes); tail != "" {
		err = fmt.Errorf("%w\n%s", err, tail)
	}
	return err
}

// Pid returns the server's process id, or 0 before Start.
func (s *Server) Pid() int { return s.proc.Pid() }

// Exited returns a channel closed when the server exits.
func (s *Server) Exited() <-chan struct{} { return s.proc.Exited() }

// Running reports whether the server was started and has not exited.
func (s *Server) Running() bool { return s.proc.Running() }

// Stop terminates the server. Stopping an exited server returns nil.
func (s *Server) Stop(timeout time.Duration) error {
	return s.proc.Stop(timeout)
}

// Close releases log handles, stopping the server if still running.
func (s *Server) Close() {
	s.proc.Close()
}

// NewClient returns a client tuned for a local throwaway server: one
// connection, short timeouts and no command retries.
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            addr,
		DB:              db,
		DialTimeout:     probeTimeout,
		ReadTimeout:     probeTimeout,
		WriteTimeout:    probeTimeout,
		MaxRetries:      -1,
		PoolSize:        1,
		DisableIdentity: true,
	})
}

// Probe sends a single PING to addr.
func Probe(ctx context.Context, addr string) error {
	client := NewClient(addr, 0)
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping %s: %w", addr, err)
	}
	return nil
}
