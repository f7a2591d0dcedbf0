package redisenv

import (
	"path/filepath"
	"testing"
)

// SkipIfNotInstalled skips the test when the redis-server binary cannot be
// found through DefaultLocator. An optional argument names a different
// binary or an explicit path to check instead.
//
//	func TestWithRealRedis(t *testing.T) {
//	    redisenv.SkipIfNotInstalled(t)
//	    srv := redisenv.NewForTest(t)
//	    ...
//	}
func SkipIfNotInstalled(tb testing.TB, binary ...string) {
	tb.Helper()
	name := DefaultBinary
	if len(binary) > 0 && binary[0] != "" {
		name = binary[0]
	}
	SkipIfNotFound(tb, DefaultLocator(), name)
}

// SkipIfNotFound skips the test when loc cannot resolve binary. The skip
// reason is "<program> not found", where program is the base name of
// binary.
func SkipIfNotFound(tb testing.TB, loc Locator, binary string) {
	tb.Helper()
	if _, ok := loc.Resolve(binary); !ok {
		tb.Skip(NotFoundReason(binary))
	}
}

// NotFoundReason returns the skip reason used for a missing binary.
func NotFoundReason(binary string) string {
	return filepath.Base(binary) + " not found"
}
