package redisenv

import "github.com/giantswarm/redisenv/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrNotFound is returned when the redis-server executable cannot be
	// resolved. Nothing is left behind.
	ErrNotFound = core.ErrNotFound

	// ErrNoFreePort is returned when no free port could be allocated.
	ErrNoFreePort = core.ErrNoFreePort

	// ErrPortInUse is returned when the port given to WithPort is used by
	// another live server of this process.
	ErrPortInUse = core.ErrPortInUse

	// ErrStartupTimeout is returned when the server did not answer PING
	// within the start timeout. The process is killed and the workspace
	// removed first.
	ErrStartupTimeout = core.ErrStartupTimeout

	// ErrProcessExited is returned when the server exited before it was
	// ready on every attempt. The error text includes the tail of its logs.
	ErrProcessExited = core.ErrProcessExited

	// ErrInvalidConfig is returned when options or a Handle fail
	// validation, for example an extra directive redisenv manages itself.
	ErrInvalidConfig = core.ErrInvalidConfig
)
