// Package config loads errtally scan profiles from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/errtally/internal/rules"
	"github.com/good-yellow-bee/errtally/internal/scanner"
)

// ThresholdLayout is the date layout expected for thresholds.
const ThresholdLayout = "2006-01-02"

// ErrUnknownProfile is returned when a named profile is not configured.
var ErrUnknownProfile = errors.New("unknown profile")

// Config represents the errtally configuration file.
type Config struct {
	Profiles map[string]*Profile `yaml:"profiles"`
	Store    string              `yaml:"store"` // scan history database, empty disables history
	Metrics  MetricsConfig       `yaml:"metrics"`
	Watch    WatchConfig         `yaml:"watch"`
}

// Profile is a named set of scan settings.
type Profile struct {
	File      string `yaml:"file"`
	Pattern   string `yaml:"pattern,omitempty"`   // empty uses the default header pattern
	Threshold string `yaml:"threshold,omitempty"` // YYYY-MM-DD, empty counts everything
	FailIf    string `yaml:"fail_if,omitempty"`   // expr condition that fails the scan
	Top       int    `yaml:"top,omitempty"`       // messages shown in table output
}

// MetricsConfig contains Prometheus export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node-exporter textfile collector path
	Listen   string `yaml:"listen"`   // /metrics listen address in watch mode
}

// WatchConfig contains watch mode settings.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"` // minimum time between rescans (default: 1s)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with default values.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	for _, p := range c.Profiles {
		if p == nil {
			continue
		}
		if p.Top <= 0 {
			p.Top = 10
		}
		p.File = ExpandHome(p.File)
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = time.Second
	}
	c.Store = ExpandHome(c.Store)
	c.Metrics.Textfile = ExpandHome(c.Metrics.Textfile)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for _, name := range c.ProfileNames() {
		p := c.Profiles[name]
		if p == nil {
			return fmt.Errorf("profiles.%s is empty", name)
		}
		if p.File == "" {
			return fmt.Errorf("profiles.%s.file is required", name)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profiles.%s: %w", name, err)
		}
	}
	return nil
}

// ProfileNames returns the configured profile names in lexical order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns a copy of the named profile.
func (c *Config) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok || p == nil {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return *p, nil
}

// Validate checks pattern, threshold and condition of a profile.
// File is not required so that flags can supply it.
func (p *Profile) Validate() error {
	if _, err := scanner.Compile(p.Pattern); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	if err := ValidateThreshold(p.Threshold); err != nil {
		return err
	}
	if p.FailIf != "" {
		if _, err := rules.Compile(p.FailIf); err != nil {
			return fmt.Errorf("fail_if: %w", err)
		}
	}
	return nil
}

// ValidateThreshold accepts an empty threshold or a YYYY-MM-DD date.
func ValidateThreshold(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(ThresholdLayout, s); err != nil {
		return fmt.Errorf("invalid threshold %q (expected YYYY-MM-DD)", s)
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
