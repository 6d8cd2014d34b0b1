package stats

// Config defines configuration for cycle statistics
type Config struct {
	// Persist writes one record per cycle to the store
	Persist bool `toml:"persist"`
}

// DefaultConfig returns default stats configuration
func DefaultConfig() Config {
	return Config{
		Persist: true,
	}
}
