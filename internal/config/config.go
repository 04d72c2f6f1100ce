// Package config loads and validates the harforge configuration.
//
// DESIGN: One YAML file, explicit Validate, environment overrides applied after
// load. Missing file is not an error - everything has a usable default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig holds run-level settings.
type RunConfig struct {
	OutputRoot string `yaml:"output_root"` // Where run artifacts land
	Model      string `yaml:"model"`       // Default model override ("" = agent default)
}

// SyncConfig holds workspace mirroring settings.
type SyncConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DebounceMs    int    `yaml:"debounce_ms"`    // 0 = DefaultDebounce
	WorkspaceRoot string `yaml:"workspace_root"` // "" = DefaultWorkspaceRoot
}

// PricingConfig holds cost-accounting settings.
type PricingConfig struct {
	RatesPath string `yaml:"rates_path"` // Optional YAML rate overlay, "" = builtin only
}

// StatusConfig holds the local status dashboard settings.
type StatusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"` // 0 = ephemeral port
}

// MonitoringConfig holds JSONL event logging settings.
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // "" = <run dir>/events.jsonl
}

// Config is the root harforge configuration.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Sync       SyncConfig       `yaml:"sync"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Status     StatusConfig     `yaml:"status"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Run:        RunConfig{OutputRoot: DefaultOutputRoot},
		Sync:       SyncConfig{Enabled: false, DebounceMs: int(DefaultDebounce / time.Millisecond), WorkspaceRoot: DefaultWorkspaceRoot},
		Monitoring: MonitoringConfig{Enabled: true},
	}
}

// Load reads the config file at path. Empty path tries the user config
// location; a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "harforge", "config.yaml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- trusted config paths
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies HARFORGE_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("HARFORGE_OUTPUT_DIR"); v != "" {
		c.Run.OutputRoot = v
	}
	if v := os.Getenv("HARFORGE_MODEL"); v != "" {
		c.Run.Model = v
	}
	if v := os.Getenv("HARFORGE_SYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Sync.Enabled = b
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Run.OutputRoot == "" {
		return fmt.Errorf("run.output_root must not be empty")
	}
	if c.Sync.DebounceMs < 0 {
		return fmt.Errorf("sync.debounce_ms must be >= 0, got %d", c.Sync.DebounceMs)
	}
	if c.Status.Port < 0 || c.Status.Port > 65535 {
		return fmt.Errorf("status.port must be in [0, 65535], got %d", c.Status.Port)
	}
	return nil
}

// Debounce returns the effective debounce interval.
func (c *Config) Debounce() time.Duration {
	if c.Sync.DebounceMs <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.Sync.DebounceMs) * time.Millisecond
}
