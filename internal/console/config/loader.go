package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of console configuration files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		logger: logger,
	}
}

// LoadResult contains the result of loading a configuration file.
type LoadResult struct {
	Config *Config
	Errors []error
}

// LoadFromFile loads configuration from a yaml file. If the file doesn't
// exist, returns default configuration with no error. Parse errors are
// collected as non-fatal: the console still starts with defaults.
func (l *Loader) LoadFromFile(path string) (*LoadResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("no config file, using defaults", zap.String("path", path))
			return &LoadResult{Config: DefaultConfig()}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.LoadFromBytes(content), nil
}

// LoadFromBytes loads configuration from yaml content.
func (l *Loader) LoadFromBytes(content []byte) *LoadResult {
	result := &LoadResult{
		Config: DefaultConfig(),
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("parse error: %w", err))
		// Continue with defaults on parse errors.
		return result
	}

	if len(cfg.Prompt) == 0 {
		result.Errors = append(result.Errors, fmt.Errorf("prompt must not be empty"))
		cfg.Prompt = DefaultConfig().Prompt
	}
	if cfg.HistoryLimit <= 0 {
		result.Errors = append(result.Errors, fmt.Errorf("historyLimit must be positive, got %d", cfg.HistoryLimit))
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}

	result.Config = cfg
	return result
}
