package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// ProviderConfig manages payment provider configurations
type ProviderConfig struct {
	configs map[string]map[string]string
	storage *SQLiteStorage
	mu      sync.RWMutex
}

// NewProviderConfig creates an in-memory store. A nil storage keeps it memory only.
func NewProviderConfig(storage *SQLiteStorage) *ProviderConfig {
	return &ProviderConfig{
		configs: make(map[string]map[string]string),
		storage: storage,
	}
}

// LoadFromStorage merges every persisted configuration into memory
func (c *ProviderConfig) LoadFromStorage() error {
	if c.storage == nil {
		return nil
	}

	configs, err := c.storage.LoadAllProviderConfigs()
	if err != nil {
		return fmt.Errorf("failed to load configs from SQLite: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, conf := range configs {
		c.configs[name] = conf
	}
	return nil
}

// LoadFromEnv reads each key from the environment variable of the same name in
// upper case (airwallex_client_id -> AIRWALLEX_CLIENT_ID). It reports whether
// any key was found. Values from the environment override stored ones.
func (c *ProviderConfig) LoadFromEnv(providerName string, keys []string) bool {
	found := make(map[string]string)
	for _, key := range keys {
		if value, ok := os.LookupEnv(strings.ToUpper(key)); ok && strings.TrimSpace(value) != "" {
			found[key] = value
		}
	}
	if len(found) == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	merged := make(map[string]string, len(found))
	for k, v := range c.configs[providerName] {
		merged[k] = v
	}
	for k, v := range found {
		merged[k] = v
	}
	c.configs[providerName] = merged
	return true
}

// SetConfig replaces the configuration of a provider and persists it when storage is available
func (c *ProviderConfig) SetConfig(providerName string, config map[string]string) error {
	if providerName == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if len(config) == 0 {
		return fmt.Errorf("config cannot be empty")
	}

	configCopy := copyConfig(config)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.SaveProviderConfig(providerName, configCopy); err != nil {
			return fmt.Errorf("failed to save config to SQLite: %w", err)
		}
	}

	c.configs[providerName] = configCopy
	return nil
}

// GetConfig returns a copy of the configuration of a provider
func (c *ProviderConfig) GetConfig(providerName string) (map[string]string, error) {
	c.mu.RLock()
	config, exists := c.configs[providerName]
	c.mu.RUnlock()

	if !exists && c.storage != nil {
		stored, err := c.storage.LoadProviderConfig(providerName)
		if err == nil {
			c.mu.Lock()
			c.configs[providerName] = stored
			c.mu.Unlock()
			config, exists = stored, true
		}
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, providerName)
	}
	return copyConfig(config), nil
}

// DeleteConfig removes the configuration of a provider
func (c *ProviderConfig) DeleteConfig(providerName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, inMemory := c.configs[providerName]
	if c.storage != nil {
		err := c.storage.DeleteProviderConfig(providerName)
		switch {
		case errors.Is(err, ErrConfigNotFound) && inMemory:
			// env only configuration, nothing persisted
		case err != nil:
			return fmt.Errorf("failed to delete config from SQLite: %w", err)
		}
	} else if !inMemory {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, providerName)
	}

	delete(c.configs, providerName)
	return nil
}

// GetAvailableProviders returns the providers that have a configuration, sorted
func (c *ProviderConfig) GetAvailableProviders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	providers := make([]string, 0, len(c.configs))
	for name := range c.configs {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// GetStats returns configuration and storage statistics
func (c *ProviderConfig) GetStats() map[string]any {
	stats := make(map[string]any)

	c.mu.RLock()
	stats["memory_configs"] = len(c.configs)
	c.mu.RUnlock()

	if c.storage == nil {
		stats["sqlite"] = "not_available"
		return stats
	}

	if sqliteStats, err := c.storage.GetStats(); err != nil {
		stats["sqlite_error"] = err.Error()
	} else {
		stats["sqlite"] = sqliteStats
	}
	return stats
}

func copyConfig(config map[string]string) map[string]string {
	out := make(map[string]string, len(config))
	for k, v := range config {
		out[k] = v
	}
	return out
}
