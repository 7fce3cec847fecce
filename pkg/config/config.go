// Package config loads the CLI configuration from a YAML file and supplies
// defaults matching the interactive flow's expectations.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for a capture-to-download flow.
type Config struct {
	// TargetURL is the site requiring authentication. Empty means the CLI
	// prompts for it.
	TargetURL string `yaml:"target_url" json:"target_url"`

	// ArtifactPath is where the session artifact is saved and loaded.
	ArtifactPath string `yaml:"artifact_path" json:"artifact_path"`

	// OutputFile receives downloaded page content.
	OutputFile string `yaml:"output_file" json:"output_file"`

	// Login configures the manual-login wait.
	Login LoginConfig `yaml:"login" json:"login"`

	// HTTPTimeoutSeconds bounds each replayed request.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" json:"http_timeout_seconds"`

	// Headless runs the capture browser without a window. Manual login
	// needs a window, so this is off by default and exists for automated
	// environments that script the login some other way.
	Headless bool `yaml:"headless" json:"headless"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoginConfig configures the manual-login wait.
type LoginConfig struct {
	// URL optionally overrides the login page; empty uses the target URL.
	URL string `yaml:"url" json:"url"`

	// TimeoutSeconds is the maximum time to wait for the user to finish
	// logging in.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// Selector optionally names an element that must be present after
	// login, e.g. "#dashboard". Site-specific; no default is assumed.
	Selector string `yaml:"selector" json:"selector"`
}

// LoggingConfig configures the slog backend.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`

	// File is an optional rotating log file; empty logs to stderr.
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		ArtifactPath:       "session_cookies.json",
		OutputFile:         "downloaded_page.html",
		HTTPTimeoutSeconds: 30,
		Login: LoginConfig{
			TimeoutSeconds: 300,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path or a
// missing file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the flow cannot run with.
func (c *Config) Validate() error {
	if c.ArtifactPath == "" {
		return fmt.Errorf("config: artifact_path must not be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("config: output_file must not be empty")
	}
	if c.Login.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: login.timeout_seconds must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("config: http_timeout_seconds must be positive")
	}
	return nil
}

// LoginTimeout returns the login wait budget as a duration.
func (c *Config) LoginTimeout() time.Duration {
	return time.Duration(c.Login.TimeoutSeconds) * time.Second
}

// HTTPTimeout returns the per-request budget as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
