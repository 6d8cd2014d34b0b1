package syncer

import "fmt"

// Config defines configuration for the sync pass
type Config struct {
	// Server types whose builds are stored under the "qat" type
	QATTypes []string `toml:"qat_types"`
}

// DefaultConfig returns the sync pass defaults
func DefaultConfig() Config {
	return Config{
		QATTypes: []string{"qat", "baseline", "build-as-user"},
	}
}

// validateConfig validates syncer configuration and returns error if invalid
func validateConfig(config Config) error {
	for _, t := range config.QATTypes {
		if t == "" {
			return fmt.Errorf("QATTypes must not contain empty type names")
		}
	}
	return nil
}
