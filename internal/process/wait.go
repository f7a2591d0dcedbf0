package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/redisenv/internal/sentinel"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = sentinel.Error("timeout must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = sentinel.Error("process exited before becoming ready")

	// ErrNotReady indicates the readiness deadline passed while the process
	// was still running.
	ErrNotReady = sentinel.Error("process did not become ready in time")
)

// ReadinessCheck reports whether the process is ready. attempt is 1-based.
// A non-nil error aborts polling.
type ReadinessCheck func(ctx context.Context, attempt int) (ready bool, err error)

// WaitReadyConfig configures WaitReady.
type WaitReadyConfig struct {
	Interval      time.Duration
	Timeout       time.Duration
	Name          string
	Addr          string
	Logger        *slog.Logger
	ProcessExited <-chan struct{} // abort as soon as this is closed
}

// WaitReady polls check until it reports ready, returns an error, the
// process exits, or the timeout passes. A timeout while the parent ctx is
// still live is reported as ErrNotReady.
func WaitReady(ctx context.Context, cfg WaitReadyConfig, check ReadinessCheck) error {
	if cfg.Name == "" {
		return errors.New("wait ready: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// PollUntilContextTimeout calls the condition sequentially.
	attempt := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, cfg.Timeout, true,
		func(pollCtx context.Context) (bool, error) {
			if exitedNow(cfg.ProcessExited) {
				return false, fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
			}

			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if ready {
				log.Debug("wait succeeded", "name", cfg.Name, "addr", cfg.Addr, "attempt", attempt)
			}
			return ready, nil
		})
	if err == nil {
		return nil
	}
	if wait.Interrupted(err) && ctx.Err() == nil {
		// The child may have died between the last poll and the deadline.
		if exitedNow(cfg.ProcessExited) {
			return fmt.Errorf("wait for %s readiness on %s: process %s: %w", cfg.Name, cfg.Addr, cfg.Name, ErrProcessExited)
		}
		return fmt.Errorf("wait for %s readiness on %s after %d attempts in %s: %w",
			cfg.Name, cfg.Addr, attempt, cfg.Timeout, ErrNotReady)
	}
	return fmt.Errorf("wait for %s readiness on %s: %w", cfg.Name, cfg.Addr, err)
}

func exitedNow(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
