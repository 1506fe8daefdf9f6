package config

import (
	"fmt"
	"sync"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Initialize loads configuration from path with environment overrides and
// stores it as the process-wide configuration. Calling it again replaces
// the stored configuration only if loading succeeds.
func Initialize(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	Set(cfg)
	return cfg, nil
}

// Get returns the process-wide configuration, or nil before Initialize.
func Get() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// Set replaces the process-wide configuration.
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// MustGet returns the process-wide configuration and panics if it has not
// been initialized.
func MustGet() *Config {
	cfg := Get()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
