// Package config loads and validates the chatrelay configuration.
//
// Configuration comes from an optional chatrelay.yaml file with environment
// variable expansion; anything not set falls back to built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Server *ServerConfig `yaml:"server"`
	Stream *StreamConfig `yaml:"stream"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// A missing file is not an error: defaults apply.
//
// Steps performed:
//  1. Read the YAML file (if present)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Fill unset sections with defaults
//  5. Validate
func Initialize(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("No configuration file found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	default:
		data = ExpandEnv(data)
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
		}
		slog.Info("Loaded configuration", "path", path)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills any section left unset by the YAML file.
func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = DefaultServerConfig()
	}
	if c.Stream == nil {
		c.Stream = DefaultStreamConfig()
	}
	fillStreamDefaults(c.Stream)
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerConfig().Port
	}
}

// fillStreamDefaults replaces zero values with the built-in defaults so a
// partial stream section does not zero out thresholds.
func fillStreamDefaults(s *StreamConfig) {
	d := DefaultStreamConfig()
	if s.PollInterval == 0 {
		s.PollInterval = d.PollInterval
	}
	if s.TTFBTimeout == 0 {
		s.TTFBTimeout = d.TTFBTimeout
	}
	if s.SilenceThreshold == 0 {
		s.SilenceThreshold = d.SilenceThreshold
	}
	if s.SilenceMinItems == 0 {
		s.SilenceMinItems = d.SilenceMinItems
	}
	if s.MaxEmptyPolls == 0 {
		s.MaxEmptyPolls = d.MaxEmptyPolls
	}
	if s.BoundaryWindowSize == 0 {
		s.BoundaryWindowSize = d.BoundaryWindowSize
	}
	if s.RecoveryAttempts == 0 {
		s.RecoveryAttempts = d.RecoveryAttempts
	}
	if s.RecoveryInterval == 0 {
		s.RecoveryInterval = d.RecoveryInterval
	}
	if s.WaitLogEvery == 0 {
		s.WaitLogEvery = d.WaitLogEvery
	}
	if s.LivenessLogEvery == 0 {
		s.LivenessLogEvery = d.LivenessLogEvery
	}
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Stream.Validate()
}
