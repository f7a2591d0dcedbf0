package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger. nil means SetLogger was not called.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() with the component attribute so
// Logger does not allocate per call. SetLogger(nil) clears it, which lets a
// later slog.SetDefault take effect.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current package-level logger. It is safe for
// concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "redisenv")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger replaces the package-level logger. nil restores the default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
