package redisenv

import (
	"time"
)

// ConfigSnapshot holds a copy of serverConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	Binary          string
	Locator         Locator
	BaseDir         string
	TempParent      string
	CopyDataFrom    string
	Port            int
	Bind            string
	Databases       int
	DBFilename      string
	Extra           map[string][]string
	StartTimeout    time.Duration
	StopTimeout     time.Duration
	MaxStartRetries int
}

// FactorySnapshot holds a copy of factoryConfig fields.
type FactorySnapshot struct {
	Instance     ConfigSnapshot
	HasInit      bool
	CacheDir     string
	CacheTimeout time.Duration
}

func snapshot(cfg serverConfig) ConfigSnapshot {
	return ConfigSnapshot{
		Binary:          cfg.Binary,
		Locator:         cfg.Locator,
		BaseDir:         cfg.BaseDir,
		TempParent:      cfg.TempParent,
		CopyDataFrom:    cfg.CopyDataFrom,
		Port:            cfg.Port,
		Bind:            cfg.Server.Bind,
		Databases:       cfg.Server.Databases,
		DBFilename:      cfg.Server.DBFilename,
		Extra:           cfg.Server.Extra,
		StartTimeout:    cfg.StartTimeout,
		StopTimeout:     cfg.StopTimeout,
		MaxStartRetries: cfg.MaxStartRetries,
	}
}

// ApplyOptionsForTesting creates a default serverConfig, applies the given
// options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultServerConfig()
	applyOptions(&cfg, opts)
	return snapshot(cfg)
}

// ApplyFactoryOptionsForTesting does the same for factory options.
func ApplyFactoryOptionsForTesting(opts ...FactoryOption) FactorySnapshot {
	cfg := defaultFactoryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return FactorySnapshot{
		Instance:     snapshot(serverConfig{cfg.Instance}),
		HasInit:      cfg.Initializer != nil,
		CacheDir:     cfg.CacheDir,
		CacheTimeout: cfg.CacheTimeout,
	}
}
