package redisenv_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/giantswarm/redisenv"
)

// TestPublicErrorConstants verifies that every exported error constant:
//   - implements the error interface (Error() returns a non-empty string)
//   - matches itself via errors.Is, directly and when wrapped
//   - does not match any other exported error constant
func TestPublicErrorConstants(t *testing.T) {
	t.Parallel()

	allErrors := map[string]error{
		"ErrInvalidConfig":  redisenv.ErrInvalidConfig,
		"ErrNoFreePort":     redisenv.ErrNoFreePort,
		"ErrNotFound":       redisenv.ErrNotFound,
		"ErrPortInUse":      redisenv.ErrPortInUse,
		"ErrProcessExited":  redisenv.ErrProcessExited,
		"ErrStartupTimeout": redisenv.ErrStartupTimeout,
	}

	for name, sentinel := range allErrors {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if sentinel == nil {
				t.Fatalf("%s is nil", name)
			}
			if msg := sentinel.Error(); msg == "" {
				t.Errorf("%s.Error() returned empty string", name)
			}
			if !errors.Is(sentinel, sentinel) {
				t.Errorf("errors.Is(%s, %s) = false, want true (self-match)", name, name)
			}
			if !errors.Is(fmt.Errorf("wrapping: %w", sentinel), sentinel) {
				t.Errorf("errors.Is(wrapped %s) = false, want true", name)
			}
			for other, otherErr := range allErrors {
				if other != name && errors.Is(sentinel, otherErr) {
					t.Errorf("errors.Is(%s, %s) = true, want false", name, other)
				}
			}
		})
	}
}
