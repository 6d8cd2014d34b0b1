package scheduler

import (
	"fmt"
	"time"
)

// Config defines configuration for daemon mode
type Config struct {
	// Time between the starts of two cycles
	Interval time.Duration `toml:"interval"`

	// Run the first cycle as soon as the daemon starts
	RunOnStart bool `toml:"run_on_start"`
}

// DefaultConfig returns daemon mode defaults
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Minute,
		RunOnStart: true,
	}
}

// MetricsConfig defines the metrics HTTP endpoint
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// DefaultMetricsConfig returns metrics endpoint defaults
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		Address: "127.0.0.1",
		Port:    9273,
	}
}

// Addr returns the listen address
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// validateConfig validates daemon configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.Interval <= 0 {
		return fmt.Errorf("Interval must be positive, got %v", config.Interval)
	}
	return nil
}

// validateMetricsConfig validates metrics configuration and returns error if invalid
func validateMetricsConfig(config MetricsConfig) error {
	if !config.Enabled {
		return nil
	}
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("Port must be between 1 and 65535, got %d", config.Port)
	}
	return nil
}
