package remote

import (
	"fmt"
	"time"
)

// Config holds settings for talking to build server status endpoints
type Config struct {
	// Per-request timeout; a timed out request counts as "no data this cycle"
	Timeout time.Duration `toml:"timeout"`

	// URL scheme used to reach the servers
	Scheme string `toml:"scheme"`

	UserAgent string `toml:"user_agent"`
}

// DefaultConfig returns the remote reader defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   500 * time.Millisecond,
		Scheme:    "http",
		UserAgent: "pkgstatus",
	}
}

// Validate checks the remote configuration
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive, got %v", c.Timeout)
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("unsupported remote scheme: %s (must be http or https)", c.Scheme)
	}
	return nil
}
