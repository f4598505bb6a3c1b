// Package config provides configuration management for the debug console.
// It handles loading and parsing of the config.yaml file under the data
// directory and mapping its values onto the Config struct.
package config

// Config holds all console configuration.
type Config struct {
	// Prompt is printed before each input line.
	Prompt string `yaml:"prompt"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"logLevel"`

	// Socket is the unix socket path the console server listens on.
	// Empty means the default under the data directory.
	Socket string `yaml:"socket"`

	// HistoryLimit is the number of entries the `history` builtin shows by
	// default.
	HistoryLimit int `yaml:"historyLimit"`

	// Banner controls whether the welcome banner is shown on session start.
	Banner bool `yaml:"banner"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Prompt:       "dbg> ",
		LogLevel:     "info",
		HistoryLimit: 20,
		Banner:       true,
	}
}
