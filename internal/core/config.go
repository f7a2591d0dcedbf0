package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/giantswarm/redisenv/internal/locator"
	"github.com/giantswarm/redisenv/internal/netutil"
	"github.com/giantswarm/redisenv/internal/redisconf"
)

// InstanceConfig holds everything needed to construct an Instance. It is
// copied into the Instance and never modified afterwards.
type InstanceConfig struct {
	// Binary is a bare executable name resolved through Locator, or a path.
	Binary string
	// Locator resolves Binary. Required.
	Locator locator.Locator
	// BaseDir is a caller-owned workspace root, kept after Stop. Empty means
	// a fresh temporary directory that Stop removes.
	BaseDir string
	// TempParent is where temporary workspaces are created. Empty means
	// os.TempDir().
	TempParent string
	// CopyDataFrom is a data directory cloned into the workspace before the
	// server starts.
	CopyDataFrom string
	// Port is a fixed listen port. Zero means allocate one.
	Port int
	// Server holds caller overrides merged on top of redisconf.Defaults.
	Server redisconf.Config
	// StartTimeout bounds readiness polling of one start attempt.
	StartTimeout time.Duration
	// StopTimeout bounds graceful shutdown before and after SIGKILL.
	StopTimeout time.Duration
	// MaxStartRetries is the number of start attempts when the server exits
	// during startup on an allocated port.
	MaxStartRetries int
	// Ports is the registry shared by concurrently live instances. nil
	// means the process-wide registry.
	Ports *netutil.PortRegistry
}

// Validate checks all InstanceConfig invariants and reports every violation
// at once.
func (c InstanceConfig) Validate() error {
	var errs []error

	if c.Binary == "" {
		errs = append(errs, errors.New("binary must not be empty"))
	}
	if c.Locator == nil {
		errs = append(errs, errors.New("locator must not be nil"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be in 0..65535, got %d", c.Port))
	}
	if c.Server.Port != 0 {
		errs = append(errs, errors.New("server config must not set port; use the instance port"))
	}
	if c.Server.Dir != "" {
		errs = append(errs, errors.New("server config must not set dir; the workspace owns it"))
	}
	if c.StartTimeout <= 0 {
		errs = append(errs, fmt.Errorf("start timeout must be greater than 0, got %s", c.StartTimeout))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}
	if c.MaxStartRetries <= 0 {
		errs = append(errs, fmt.Errorf("max start retries must be greater than 0, got %d", c.MaxStartRetries))
	}

	return errors.Join(errs...)
}

// serverConfig merges the caller overrides onto the defaults and checks
// the result for everything except the port and dir, which are only known
// at launch.
func (c InstanceConfig) serverConfig() (redisconf.Config, error) {
	merged, err := redisconf.Merge(redisconf.Defaults(), c.Server)
	if err != nil {
		return redisconf.Config{}, err
	}
	probe := merged
	probe.Port = 1
	probe.Dir = "."
	if err := probe.Validate(); err != nil {
		return redisconf.Config{}, err
	}
	return merged, nil
}
