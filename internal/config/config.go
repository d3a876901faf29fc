// Package config provides configuration file parsing for brewmetrics.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default backend connection parameters for the Homebrew analytics server.
const (
	DefaultHost   = "https://eu-central-1-1.aws.cloud2.influxdata.com"
	DefaultOrg    = "homebrew"
	DefaultBucket = "analytics"
)

// Config holds backend connection settings and report tweaks. Everything
// has a usable default; the file only needs the fields being overridden.
type Config struct {
	Host   string `yaml:"host"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`

	// Concurrency bounds the publish fan-out worker pool.
	Concurrency int `yaml:"concurrency"`

	// OSVersions maps raw os_version values to display names, consulted
	// before the built-in normalization tables.
	OSVersions map[string]string `yaml:"os_versions"`

	// ExcludeOSVersions lists raw os_version values dropped from
	// os-version queries (pre-release builds, CI noise).
	ExcludeOSVersions []string `yaml:"exclude_os_versions"`
}

// Dir returns the brewmetrics config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/brewmetrics if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "brewmetrics"), nil
}

// defaults returns a Config populated with the built-in values.
func defaults() *Config {
	return &Config{
		Host:        DefaultHost,
		Org:         DefaultOrg,
		Bucket:      DefaultBucket,
		Concurrency: 4,
	}
}

// Load reads the config file at path. A missing file yields the defaults
// without an error; a present but malformed file is an error. Fields left
// unset in the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Org == "" {
		cfg.Org = DefaultOrg
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return cfg, nil
}

// LoadDefault loads {Dir()}/config.yaml.
func LoadDefault() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, "config.yaml"))
}
