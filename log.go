package redisenv

import (
	"log/slog"

	"github.com/giantswarm/redisenv/internal/core"
)

// SetLogger replaces the package-level logger used by redisenv.
// The provided logger should already have any desired attributes; redisenv
// only adds per-server attributes such as the instance id.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute. Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other redisenv operations, but
// servers keep the logger they were created with.
//
// Example:
//
//	redisenv.SetLogger(myLogger.With("component", "redisenv"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
