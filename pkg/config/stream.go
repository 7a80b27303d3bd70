package config

import (
	"fmt"
	"time"
)

// StreamConfig controls the reconciliation loop: its poll cadence, the three
// watchdog policies layered over it, boundary detection, and the bounded
// thinking-only recovery procedure.
type StreamConfig struct {
	// PollInterval is the backoff sleep after an empty poll of the fragment
	// source. This is the loop's only yield point.
	PollInterval time.Duration `yaml:"poll_interval"`

	// TTFBTimeout is the maximum time to wait for the first fragment.
	// On expiry the session aborts with cause "ttfb_timeout" after requesting
	// a reload of the generation surface.
	TTFBTimeout time.Duration `yaml:"ttfb_timeout"`

	// SilenceThreshold is how long the stream may go without an accepted
	// packet before generation is assumed to have finished quietly.
	SilenceThreshold time.Duration `yaml:"silence_threshold"`

	// SilenceMinItems is the number of items that must have arrived before
	// the silence watchdog is armed.
	SilenceMinItems int `yaml:"silence_min_items"`

	// MaxEmptyPolls is the hard ceiling on consecutive empty polls.
	// The ceiling wins regardless of whether the surface still looks active.
	MaxEmptyPolls int `yaml:"max_empty_polls"`

	// BoundaryWindowSize is the trailing character window kept between
	// boundary scans so a marker split across fragments is still found.
	BoundaryWindowSize int `yaml:"boundary_window_size"`

	// RecoveryAttempts bounds the thinking-only recovery polling budget.
	RecoveryAttempts int `yaml:"recovery_attempts"`

	// RecoveryInterval is the cadence of recovery text-probe polls.
	RecoveryInterval time.Duration `yaml:"recovery_interval"`

	// WaitLogEvery is the number of empty polls between wait-progress logs.
	WaitLogEvery int `yaml:"wait_log_every"`

	// LivenessLogEvery is the number of empty polls between diagnostic
	// liveness-probe checks while waiting. Zero disables them.
	LivenessLogEvery int `yaml:"liveness_log_every"`
}

// DefaultStreamConfig returns the built-in stream defaults.
func DefaultStreamConfig() *StreamConfig {
	return &StreamConfig{
		PollInterval:       100 * time.Millisecond,
		TTFBTimeout:        5 * time.Second,
		SilenceThreshold:   5 * time.Second,
		SilenceMinItems:    10,
		MaxEmptyPolls:      900,
		BoundaryWindowSize: 100,
		RecoveryAttempts:   20,
		RecoveryInterval:   500 * time.Millisecond,
		WaitLogEvery:       50,
		LivenessLogEvery:   30,
	}
}

// Validate checks the stream configuration for values the loop cannot run with.
func (c *StreamConfig) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("stream.poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.TTFBTimeout <= 0 {
		return fmt.Errorf("stream.ttfb_timeout must be positive, got %v", c.TTFBTimeout)
	}
	if c.SilenceThreshold <= 0 {
		return fmt.Errorf("stream.silence_threshold must be positive, got %v", c.SilenceThreshold)
	}
	if c.SilenceMinItems < 1 {
		return fmt.Errorf("stream.silence_min_items must be at least 1, got %d", c.SilenceMinItems)
	}
	if c.MaxEmptyPolls < 1 {
		return fmt.Errorf("stream.max_empty_polls must be at least 1, got %d", c.MaxEmptyPolls)
	}
	if c.BoundaryWindowSize < 1 {
		return fmt.Errorf("stream.boundary_window_size must be at least 1, got %d", c.BoundaryWindowSize)
	}
	if c.RecoveryAttempts < 0 {
		return fmt.Errorf("stream.recovery_attempts must not be negative, got %d", c.RecoveryAttempts)
	}
	if c.RecoveryAttempts > 0 && c.RecoveryInterval <= 0 {
		return fmt.Errorf("stream.recovery_interval must be positive when recovery is enabled, got %v", c.RecoveryInterval)
	}
	return nil
}
