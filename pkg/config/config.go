// Package config loads and saves the brstitch configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the brstitch configuration.
type Config struct {
	SectionSize  string  `yaml:"section_size"`
	Compress     bool    `yaml:"compress"`
	Nest         bool    `yaml:"nest"`
	KeepSections bool    `yaml:"keep_sections"`
	CatalogDir   string  `yaml:"catalog_dir"`
	Logging      Logging `yaml:"logging"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		SectionSize: "8MB",
		Compress:    true,
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to the specified path.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration path for the current
// platform.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./brstitch.yaml"
	}
	return filepath.Join(homeDir, ".config", "brstitch", "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// ParseSize converts a human size like "8MB" or "64kb" to bytes. Units are
// powers of 1024; fractional values are allowed.
func ParseSize(arg string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(arg))

	units := []struct {
		suffix string
		mul    int64
	}{
		{"kb", 1 << 10},
		{"mb", 1 << 20},
		{"gb", 1 << 30},
		{"b", 1},
	}
	for _, unit := range units {
		if !strings.HasSuffix(s, unit.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
		size, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size format: %q", arg)
		}
		return int64(size * float64(unit.mul)), nil
	}
	return 0, fmt.Errorf("invalid size format: %q, want a number with a b/kb/mb/gb suffix", arg)
}
