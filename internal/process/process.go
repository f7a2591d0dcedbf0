package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/redisenv/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called twice on one Process.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when Start is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when Start is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyWorkDir is returned when Start is called without a working directory.
const ErrEmptyWorkDir = sentinel.Error("working directory must not be empty")

// DefaultStopTimeout bounds Stop when the caller passes a non-positive timeout.
const DefaultStopTimeout = 10 * time.Second

// Process is one supervised child.
//
// Start, Stop and Close are serialized by an internal mutex, and Stop holds
// it for as long as the child takes to go away. Exited and Running never
// take that mutex, so liveness checks stay responsive while another
// goroutine is stopping the child.
type Process struct {
	name string
	log  *slog.Logger

	// exited is closed by the wait goroutine. It is created in New and never
	// replaced; started gates whether Exited hands it out.
	exited  chan struct{}
	started atomic.Bool

	mu      sync.Mutex
	cmd     *exec.Cmd
	pid     int
	done    <-chan error
	waitErr error
	stopped bool
	logs    LogFiles
}

// New returns an unstarted Process. name labels log entries and log file
// names. Panics if name is empty.
func New(name string, logger *slog.Logger) *Process {
	if name == "" {
		panic("redisenv: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{name: name, log: logger, exited: make(chan struct{})}
}

// Start captures stdout and stderr into workDir, starts cmd there and begins
// waiting for it in the background.
func (p *Process) Start(cmd *exec.Cmd, workDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if workDir == "" {
		return ErrEmptyWorkDir
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd.Dir = workDir
	configureSysProcAttr(cmd)

	logs, err := NewLogFiles(workDir, p.name)
	if err != nil {
		return fmt.Errorf("create %s logs: %w", p.name, err)
	}
	cmd.Stdout = logs.stdout
	cmd.Stderr = logs.stderr
	if err := cmd.Start(); err != nil {
		logs.Close()
		return fmt.Errorf("start %s process: %w", p.name, err)
	}

	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.logs = logs

	// done carries the single cmd.Wait result to Stop; exited is the
	// broadcast form for any number of watchers.
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
		close(p.exited)
	}()
	p.done = done
	p.started.Store(true)

	p.log.Debug("process started", "process", p.name, "pid", p.pid, "dir", workDir)
	return nil
}

// Pid returns the child's process id, or 0 before Start.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Exited returns a channel closed when the child exits. It is nil before
// Start and stays valid after Stop. It does not block on a concurrent Stop.
func (p *Process) Exited() <-chan struct{} {
	if !p.started.Load() {
		return nil
	}
	return p.exited
}

// Running reports whether the child was started and has not exited.
func (p *Process) Running() bool {
	exited := p.Exited()
	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// Logs returns the capture files of the child.
func (p *Process) Logs() LogFiles {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logs
}

// Stop terminates the child and waits for it to exit.
//
// The child gets SIGTERM first. If it is still running after
// min(5s, timeout) it gets SIGKILL, and once timeout has elapsed Stop stops
// waiting for a graceful exit and only drains the result of the background
// cmd.Wait. That drain is bounded by its own 10 second limit, so the worst
// case for one call is timeout plus 10 seconds. A child stuck in
// uninterruptible sleep can outlive that bound; Stop then returns an error
// and the process may be orphaned. A non-positive timeout means
// DefaultStopTimeout.
//
// Stopping a process that was never started, was already stopped, or already
// exited on its own returns nil. A child that exited with a non-zero status
// before Stop was called is not an error either, since the caller asked for
// it to be gone. Exit caused by the stop signals is likewise treated as
// success. Stop holds the Process mutex throughout, so concurrent Stop and
// Close calls wait for the first one to finish.
func (p *Process) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.stopped {
		return nil
	}

	select {
	case <-p.exited:
		p.stopped = true
		ok, err := drainDone(p.done, killDrainTimeout)
		if ok {
			p.waitErr = err
		}
		p.log.Debug("process had already exited", "process", p.name, "pid", p.pid, "status", err)
		return nil
	default:
	}

	err := stopWithDone(p.cmd, p.done, timeout, p.name)
	if err != nil {
		p.log.Warn("process stop failed; process may be orphaned",
			"process", p.name, "pid", p.pid, "error", err)
		return err
	}
	p.stopped = true
	return nil
}

// Close releases the log file handles, stopping the child first if the
// caller forgot to.
func (p *Process) Close() {
	p.mu.Lock()
	needStop := p.cmd != nil && !p.stopped
	p.mu.Unlock()
	if needStop {
		p.log.Warn("process closed without Stop; stopping automatically", "process", p.name)
		if err := p.Stop(DefaultStopTimeout); err != nil {
			p.log.Warn("auto-stop during Close failed", "process", p.name, "error", err)
		}
	}
	p.mu.Lock()
	p.logs.Close()
	p.mu.Unlock()
}
