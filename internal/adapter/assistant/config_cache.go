package assistant

import (
	"context"
	"fmt"
	"sync"
)

// ConfigLoader fetches the assistant configuration.
type ConfigLoader func(ctx context.Context, apiKey string) (*Config, error)

// ConfigCache loads the assistant configuration once and serves the cached
// value afterwards. Failed loads are not cached, so the next call retries.
type ConfigCache struct {
	mu     sync.Mutex
	loader ConfigLoader
	cfg    *Config
}

// NewConfigCache creates a cache around loader.
func NewConfigCache(loader ConfigLoader) *ConfigCache {
	return &ConfigCache{loader: loader}
}

// StaticConfig returns a cache that is already populated.
func StaticConfig(cfg Config) *ConfigCache {
	return &ConfigCache{cfg: &cfg}
}

// Get returns the cached configuration, loading it on first use with apiKey.
func (c *ConfigCache) Get(ctx context.Context, apiKey string) (Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg != nil {
		return *c.cfg, nil
	}
	if c.loader == nil {
		return Config{}, fmt.Errorf("assistant configuration is not available")
	}
	cfg, err := c.loader(ctx, apiKey)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load assistant configuration: %w", err)
	}
	if cfg == nil || cfg.AssistantID == "" {
		return Config{}, fmt.Errorf("failed to load assistant configuration: no assistant id")
	}
	c.cfg = cfg
	return *cfg, nil
}
