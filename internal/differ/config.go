package differ

import "fmt"

// Config defines configuration for the diff pass
type Config struct {
	// Build types compared against earlier builds of the same type
	SelfCompareTypes []string `toml:"self_compare_types"`
}

// DefaultConfig returns the diff pass defaults
func DefaultConfig() Config {
	return Config{
		SelfCompareTypes: []string{"package", "qat"},
	}
}

// validateConfig validates differ configuration and returns error if invalid
func validateConfig(config Config) error {
	if len(config.SelfCompareTypes) == 0 {
		return fmt.Errorf("SelfCompareTypes must name at least one type")
	}
	for _, t := range config.SelfCompareTypes {
		if t == "" {
			return fmt.Errorf("SelfCompareTypes must not contain empty type names")
		}
	}
	return nil
}
