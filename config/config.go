// Package config holds the settings shared by the loader and the filter hosts.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Logging Logging `yaml:"logging"`
	Metrics Metrics `yaml:"metrics"`
}

// Logging configures the logrus backend used by the logging package.
type Logging struct {
	// Level is one of trace, debug, info, warning, error, fatal.
	Level string `yaml:"level"`
	// Format is either "text" or "json".
	Format string `yaml:"format"`
	// Source is attached to every entry as the "source" field when set.
	Source string `yaml:"source"`
}

// Metrics configures the Prometheus collectors.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

var (
	validLevels  = []string{"trace", "debug", "info", "warning", "error", "fatal"}
	validFormats = []string{"text", "json"}
)

// Default returns the configuration used when no document is supplied.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Metrics: Metrics{
			Enabled:   false,
			Namespace: "corekit",
		},
	}
}

// Load parses a YAML document on top of the defaults and validates it.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses the YAML file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Load(data)
}

// Validate checks enumerated fields. Empty values are normalized to defaults.
func (c *Config) Validate() error {
	def := Default()

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if !contains(validLevels, c.Logging.Level) {
		return &ValidationError{Field: "logging.level", Value: c.Logging.Level}
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if !contains(validFormats, c.Logging.Format) {
		return &ValidationError{Field: "logging.format", Value: c.Logging.Format}
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		return &ValidationError{Field: "metrics.namespace", Value: c.Metrics.Namespace}
	}
	return nil
}

// ValidationError reports a configuration field holding an unsupported value.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Field)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
