package redisenv

import (
	"github.com/giantswarm/redisenv/internal/core"
	"github.com/giantswarm/redisenv/internal/locator"
)

// serverConfig wraps core.InstanceConfig via embedding, keeping
// internal/core types out of the public API signature.
type serverConfig struct {
	core.InstanceConfig
}

// factoryConfig wraps core.FactoryConfig the same way.
type factoryConfig struct {
	core.FactoryConfig
}

// defaultServerConfig returns a serverConfig populated with all default
// values.
func defaultServerConfig() serverConfig {
	return serverConfig{core.InstanceConfig{
		Binary:          DefaultBinary,
		Locator:         locator.Default(),
		StartTimeout:    DefaultStartTimeout,
		StopTimeout:     DefaultStopTimeout,
		MaxStartRetries: DefaultMaxStartRetries,
	}}
}

func defaultFactoryConfig() factoryConfig {
	return factoryConfig{core.FactoryConfig{
		Instance:     defaultServerConfig().InstanceConfig,
		CacheTimeout: DefaultCacheTimeout,
	}}
}

func applyOptions(cfg *serverConfig, opts []Option) {
	for _, opt := range opts {
		opt(cfg)
	}
}
