package core

import (
	"github.com/giantswarm/redisenv/internal/netutil"
	"github.com/giantswarm/redisenv/internal/process"
	"github.com/giantswarm/redisenv/internal/sentinel"
)

// ErrNotFound is returned when the redis-server executable cannot be
// resolved. Construction fails before any workspace or port is taken.
const ErrNotFound = sentinel.Error("redis-server executable not found")

// ErrStartupTimeout is returned when the server is still running but has
// not answered PING within the start timeout. The process is killed and the
// workspace removed before the error is returned.
const ErrStartupTimeout = sentinel.Error("redis-server did not become ready in time")

// ErrInvalidConfig wraps every configuration validation failure.
const ErrInvalidConfig = sentinel.Error("invalid configuration")

// ErrProcessExited is returned when the server exits before it is ready.
const ErrProcessExited = process.ErrProcessExited

// ErrNoFreePort is returned when no port could be allocated.
const ErrNoFreePort = netutil.ErrNoFreePort

// ErrPortInUse is returned when a fixed port is held by another live
// instance of this process.
const ErrPortInUse = netutil.ErrPortInUse
