package core

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/redisenv/internal/locator"
	"github.com/giantswarm/redisenv/internal/redisconf"
)

func validInstanceConfig() InstanceConfig {
	return InstanceConfig{
		Binary:          "redis-server",
		Locator:         locator.Default(),
		StartTimeout:    10 * time.Second,
		StopTimeout:     5 * time.Second,
		MaxStartRetries: 3,
	}
}

func TestInstanceConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validInstanceConfig().Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	tests := map[string]struct {
		modify       func(c *InstanceConfig)
		wantContains string
	}{
		"empty binary": {
			modify:       func(c *InstanceConfig) { c.Binary = "" },
			wantContains: "binary must not be empty",
		},
		"nil locator": {
			modify:       func(c *InstanceConfig) { c.Locator = nil },
			wantContains: "locator must not be nil",
		},
		"negative port": {
			modify:       func(c *InstanceConfig) { c.Port = -1 },
			wantContains: "port must be in 0..65535",
		},
		"port in server config": {
			modify:       func(c *InstanceConfig) { c.Server.Port = 6379 },
			wantContains: "must not set port",
		},
		"dir in server config": {
			modify:       func(c *InstanceConfig) { c.Server.Dir = "/var/lib/redis" },
			wantContains: "must not set dir",
		},
		"zero start timeout": {
			modify:       func(c *InstanceConfig) { c.StartTimeout = 0 },
			wantContains: "start timeout",
		},
		"negative stop timeout": {
			modify:       func(c *InstanceConfig) { c.StopTimeout = -time.Second },
			wantContains: "stop timeout",
		},
		"zero retries": {
			modify:       func(c *InstanceConfig) { c.MaxStartRetries = 0 },
			wantContains: "max start retries",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := validInstanceConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantContains) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.wantContains)
			}
		})
	}
}

func TestInstanceConfig_ValidateReportsAll(t *testing.T) {
	t.Parallel()

	err := InstanceConfig{}.Validate()
	if err == nil {
		t.Fatal("expected error for zero config")
	}
	for _, want := range []string{"binary", "locator", "start timeout", "stop timeout", "max start retries"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestInstanceConfig_ServerConfig(t *testing.T) {
	t.Parallel()

	cfg := validInstanceConfig()
	cfg.Server = redisconf.Config{Databases: 2, Extra: map[string][]string{"appendonly": {"yes"}}}
	got, err := cfg.serverConfig()
	if err != nil {
		t.Fatalf("serverConfig() error = %v", err)
	}
	if got.Bind != "127.0.0.1" || got.DBFilename != "dump.rdb" || got.Databases != 2 || !slices.Equal(got.Extra["appendonly"], []string{"yes"}) {
		t.Errorf("serverConfig() = %+v", got)
	}

	cfg.Server = redisconf.Config{Extra: map[string][]string{"daemonize": {"yes"}}}
	if _, err := cfg.serverConfig(); err == nil {
		t.Error("serverConfig() accepted a managed directive in Extra")
	}
}
