package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig describes one external analysis service the scan can
// delegate to. The command is spawned per request and spoken to over stdio.
type ServiceConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Query   string   `yaml:"query,omitempty"`
}

// ScanConfig is the optional per-user scan configuration loaded from
// .repoguard.yaml in the working directory.
type ScanConfig struct {
	Disabled       []string        `yaml:"disabled,omitempty"`
	IgnorePaths    []string        `yaml:"ignore_paths,omitempty"`
	MaxFileSize    int64           `yaml:"max_file_size,omitempty"`
	Concurrency    int             `yaml:"concurrency,omitempty"`
	ScannerTimeout string          `yaml:"scanner_timeout,omitempty"`
	AdvisoryFeed   string          `yaml:"advisory_feed,omitempty"`
	Services       []ServiceConfig `yaml:"analysis_services,omitempty"`
}

// LoadScanConfig loads .repoguard.yaml (or .yml). A missing file yields the
// zero-value defaults rather than an error.
func LoadScanConfig() (*ScanConfig, error) {
	paths := []string{".repoguard.yaml", ".repoguard.yml"}

	var configPath string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			configPath = path
			break
		}
	}

	if configPath == "" {
		return &ScanConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg ScanConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	return &cfg, nil
}

// IsDisabled checks if a scanner is disabled by name.
func (c *ScanConfig) IsDisabled(name string) bool {
	for _, disabled := range c.Disabled {
		if disabled == name {
			return true
		}
	}
	return false
}

// Timeout parses the configured per-scanner timeout, returning zero when the
// field is unset or invalid so callers fall back to their default.
func (c *ScanConfig) Timeout() time.Duration {
	if c.ScannerTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.ScannerTimeout)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
