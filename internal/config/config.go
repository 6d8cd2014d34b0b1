package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/differ"
	"github.com/livinlefevreloca/pkgstatus/internal/remote"
	"github.com/livinlefevreloca/pkgstatus/internal/scheduler"
	"github.com/livinlefevreloca/pkgstatus/internal/stats"
	"github.com/livinlefevreloca/pkgstatus/internal/syncer"
)

// Supported database drivers
const (
	DriverSQLite = "sqlite3"
	DriverMongo  = "mongo"
)

// Environment variables applied over the config file
const (
	EnvDatabaseDriver = "PKGSTATUS_DATABASE_DRIVER"
	EnvDatabaseDSN    = "PKGSTATUS_DATABASE_DSN"
	EnvServersFile    = "PKGSTATUS_SERVERS_FILE"
	EnvLogLevel       = "PKGSTATUS_LOG_LEVEL"
	EnvRemoteTimeout  = "PKGSTATUS_REMOTE_TIMEOUT"
)

// Config represents the application configuration
type Config struct {
	// File listing the servers to sync, one "type:hostname" per line
	ServersFile string `toml:"servers_file"`

	Database db.Config               `toml:"database"`
	Remote   remote.Config           `toml:"remote"`
	Syncer   syncer.Config           `toml:"syncer"`
	Differ   differ.Config           `toml:"differ"`
	Stats    stats.Config            `toml:"stats"`
	Daemon   scheduler.Config        `toml:"daemon"`
	Metrics  scheduler.MetricsConfig `toml:"metrics"`
	Logging  LoggingConfig           `toml:"logging"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`

	// Optional log file, rotated by size
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ServersFile: "servers.conf",
		Database: db.Config{
			Driver:          DriverSQLite,
			DSN:             "pkgstatus.db",
			Database:        "pkgstatus",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			DialTimeout:     10 * time.Second,
			SkipMigrations:  false,
		},
		Remote:  remote.DefaultConfig(),
		Syncer:  syncer.DefaultConfig(),
		Differ:  differ.DefaultConfig(),
		Stats:   stats.DefaultConfig(),
		Daemon:  scheduler.DefaultConfig(),
		Metrics: scheduler.DefaultMetricsConfig(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// Parse TOML file
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Environment variables
// 4. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnvFile sets environment variables from a dotenv file without
// replacing variables that are already set. A missing file is only an
// error when required.
func LoadEnvFile(path string, required bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) && !required {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables looked up with
// lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabaseDriver); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := lookup(EnvServersFile); ok && v != "" {
		c.ServersFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvRemoteTimeout); ok && v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRemoteTimeout, err)
		}
		c.Remote.Timeout = timeout
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Database validation
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver must be specified")
	}
	if c.Database.Driver != DriverSQLite && c.Database.Driver != DriverMongo {
		return fmt.Errorf("unsupported database driver: %s (must be sqlite3 or mongo)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN must be specified")
	}

	if c.ServersFile == "" {
		return fmt.Errorf("servers_file must be specified")
	}

	if err := c.Remote.Validate(); err != nil {
		return err
	}

	// Daemon validation
	if c.Daemon.Interval <= 0 {
		return fmt.Errorf("daemon interval must be positive")
	}

	// Metrics validation
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics port must be between 1 and 65535")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}
