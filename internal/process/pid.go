package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// pidPollInterval is how often Terminate rechecks a pid it does not own.
const pidPollInterval = 20 * time.Millisecond

// Alive reports whether pid names a live, non-zombie process. A process we
// may not signal (EPERM) still exists and counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err != nil && !errors.Is(err, syscall.EPERM) {
		return false
	}
	return !isZombie(pid)
}

// Terminate stops a process this process did not start and therefore cannot
// wait on. It sends SIGTERM, escalates to SIGKILL after the grace period and
// polls until the pid is gone. A pid that is already gone returns nil.
func Terminate(pid int, timeout time.Duration) error {
	if pid <= 0 {
		return fmt.Errorf("terminate: invalid pid %d", pid)
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	if !Alive(pid) {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if !Alive(pid) {
			return nil
		}
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	gone := func(context.Context) (bool, error) { return !Alive(pid), nil }

	grace := min(termGracePeriod, timeout)
	if err := wait.PollUntilContextTimeout(context.Background(), pidPollInterval, grace, true, gone); err == nil {
		return nil
	}

	_ = proc.Kill()
	if err := wait.PollUntilContextTimeout(context.Background(), pidPollInterval, killDrainTimeout, true, gone); err != nil {
		return fmt.Errorf("process %d still running after SIGKILL: %w", pid, err)
	}
	return nil
}
