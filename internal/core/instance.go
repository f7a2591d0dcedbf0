package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/giantswarm/redisenv/internal/redisserver"
	"github.com/giantswarm/redisenv/internal/workspace"
)

// State is the lifecycle position of an Instance.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ConnectionInfo is what a client needs to reach the server.
type ConnectionInfo struct {
	Host string
	Port int
	DB   int
}

// Addr returns host:port.
func (c ConnectionInfo) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns a redis:// URL accepted by redis.ParseURL.
func (c ConnectionInfo) URL() string {
	return "redis://" + c.Addr() + "/" + strconv.Itoa(c.DB)
}

// Handle is the serialisable identity of a running instance. Another
// process can rebuild an Instance from it with Attach; that Instance can
// observe the server but never stop it.
type Handle struct {
	ID        string `json:"id"`
	BaseDir   string `json:"base_dir"`
	OwnedDir  bool   `json:"owned_dir"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	DB        int    `json:"db"`
	ServerPID int    `json:"server_pid"`
	OwnerPID  int    `json:"owner_pid"`
}

// Instance is one running redis-server fixture.
//
// Stop is serialized by stopMu; everything else is immutable after
// construction or atomic.
type Instance struct {
	id         string
	conn       ConnectionInfo
	copiedFrom string
	attached   bool

	sup   *supervisor
	state atomic.Int32

	stopMu      sync.Mutex
	stopTimeout time.Duration
	cleanup     runtime.Cleanup

	log *slog.Logger
}

// NewInstance creates a workspace, allocates a port and starts a server,
// returning once it answers PING. On error no process, workspace or port
// reservation is left behind. ctx bounds construction only; the server
// keeps running after ctx is done.
func NewInstance(ctx context.Context, cfg InstanceConfig) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	conf, err := cfg.serverConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: server config: %w", ErrInvalidConfig, err)
	}
	binary, err := resolveBinary(cfg.Locator, cfg.Binary)
	if err != nil {
		return nil, err
	}
	ports := cfg.Ports
	if ports == nil {
		ports = sharedPorts()
	}

	id := uuid.NewString()
	log := Logger().With("instance", id)
	startTime := time.Now()

	ws, err := workspace.Create(workspace.Options{
		Dir:        cfg.BaseDir,
		TempParent: cfg.TempParent,
		CopyFrom:   cfg.CopyDataFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	srv, port, err := launch(ctx, launchParams{
		cfg:    cfg,
		binary: binary,
		conf:   conf,
		ws:     ws,
		ports:  ports,
		log:    log,
	})
	if err != nil {
		if destroyErr := ws.Destroy(); destroyErr != nil {
			log.Warn("remove workspace after failed start", "dir", ws.Root(), "error", destroyErr)
		}
		return nil, fmt.Errorf("start redis-server: %w", err)
	}

	conn := ConnectionInfo{Host: conf.Bind, Port: port, DB: 0}
	sup := &supervisor{
		log:         log,
		ownerPID:    os.Getpid(),
		currentPID:  os.Getpid,
		stopTimeout: cfg.StopTimeout,
		addr:        conn.Addr(),
		pid:         srv.Pid(),
		srv:         srv,
		ws:          ws,
		ports:       ports,
		port:        port,
	}
	inst := &Instance{
		id:          id,
		conn:        conn,
		copiedFrom:  cfg.CopyDataFrom,
		sup:         sup,
		stopTimeout: cfg.StopTimeout,
		log:         log,
	}
	inst.state.Store(int32(StateRunning))
	inst.cleanup = runtime.AddCleanup(inst, finalStop, sup)

	log.Debug("instance ready",
		"addr", conn.Addr(),
		"pid", sup.pid,
		"base_dir", ws.Root(),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)
	return inst, nil
}

// Attach rebuilds an Instance from a Handle, typically in a process other
// than the one that created it. The result reports liveness by pid and
// PING; its Stop terminates the server only when called in the owner
// process.
func Attach(h Handle, stopTimeout time.Duration) (*Instance, error) {
	var errs []error
	if h.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if h.BaseDir == "" {
		errs = append(errs, errors.New("base dir must not be empty"))
	}
	if h.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if h.Port <= 0 || h.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be in 1..65535, got %d", h.Port))
	}
	if h.ServerPID <= 0 {
		errs = append(errs, fmt.Errorf("server pid must be greater than 0, got %d", h.ServerPID))
	}
	if h.OwnerPID <= 0 {
		errs = append(errs, fmt.Errorf("owner pid must be greater than 0, got %d", h.OwnerPID))
	}
	if stopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", stopTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: handle: %w", ErrInvalidConfig, err)
	}

	conn := ConnectionInfo{Host: h.Host, Port: h.Port, DB: h.DB}
	log := Logger().With("instance", h.ID, "attached", true)
	inst := &Instance{
		id:       h.ID,
		conn:     conn,
		attached: true,
		sup: &supervisor{
			log:         log,
			ownerPID:    h.OwnerPID,
			currentPID:  os.Getpid,
			stopTimeout: stopTimeout,
			addr:        conn.Addr(),
			pid:         h.ServerPID,
			ws:          workspace.Open(h.BaseDir, h.OwnedDir),
			port:        h.Port,
		},
		stopTimeout: stopTimeout,
		log:         log,
	}
	inst.state.Store(int32(StateRunning))
	return inst, nil
}

// ID returns the instance id, unique per process.
func (i *Instance) ID() string { return i.id }

// ConnectionInfo returns the connection descriptor.
func (i *Instance) ConnectionInfo() ConnectionInfo { return i.conn }

// BaseDir returns the workspace root.
func (i *Instance) BaseDir() string { return i.sup.ws.Root() }

// DataDir returns the server's data directory inside the workspace.
func (i *Instance) DataDir() string { return i.sup.ws.DataDir() }

// ConfPath returns the redis.conf written for the server.
func (i *Instance) ConfPath() string { return filepath.Join(i.BaseDir(), redisserver.ConfFileName) }

// Pid returns the server's process id.
func (i *Instance) Pid() int { return i.sup.pid }

// OwnerPID returns the id of the process allowed to stop the server.
func (i *Instance) OwnerPID() int { return i.sup.ownerPID }

// CopiedFrom returns the directory the data was cloned from, if any.
func (i *Instance) CopiedFrom() string { return i.copiedFrom }

// State returns the lifecycle state.
func (i *Instance) State() State { return State(i.state.Load()) }

// Handle returns the serialisable identity of the instance.
func (i *Instance) Handle() Handle {
	return Handle{
		ID:        i.id,
		BaseDir:   i.sup.ws.Root(),
		OwnedDir:  i.sup.ws.Owned(),
		Host:      i.conn.Host,
		Port:      i.conn.Port,
		DB:        i.conn.DB,
		ServerPID: i.sup.pid,
		OwnerPID:  i.sup.ownerPID,
	}
}

// IsAlive reports whether the server is running. It never changes state.
func (i *Instance) IsAlive() bool {
	if i.State() != StateRunning {
		return false
	}
	return i.sup.alive()
}

// Client returns a new client for the server. The caller closes it.
func (i *Instance) Client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: i.conn.Addr(),
		DB:   i.conn.DB,
	})
}

// Stop terminates the server, waits for it to exit and removes an owned
// workspace. It is idempotent, and a server that already exited is not an
// error. Called outside the owner process it does nothing and returns nil.
//
// ctx only shortens the wait. The stop timeout is capped by ctx's deadline,
// and a ctx that is already done leaves a one millisecond grace, which makes
// the stop a prompt SIGKILL. Either way the server is stopped and the
// workspace removed, so a late Stop still succeeds.
func (i *Instance) Stop(ctx context.Context) error {
	i.stopMu.Lock()
	defer i.stopMu.Unlock()

	if i.State() == StateStopped {
		return nil
	}

	stopped, err := i.sup.stop(i.effectiveStopTimeout(ctx))
	if stopped {
		i.state.Store(int32(StateStopped))
		i.cleanup.Stop()
	}
	if err != nil {
		return fmt.Errorf("stop instance %s: %w", i.id, err)
	}
	return nil
}

// effectiveStopTimeout is the configured stop timeout, capped by ctx's
// deadline and never below a millisecond.
func (i *Instance) effectiveStopTimeout(ctx context.Context) time.Duration {
	if ctx.Err() != nil {
		return time.Millisecond
	}
	timeout := i.stopTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}
