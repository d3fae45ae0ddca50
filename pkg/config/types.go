package config

import "time"

// Config is the main optimizer configuration loaded from YAML.
type Config struct {
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	Store        Store         `yaml:"store"`
	Oracle       Oracle        `yaml:"oracle"`
	Optimization Optimization  `yaml:"optimization"`
	Bounds       *Bounds       `yaml:"bounds,omitempty"`
	Retry        *Retry        `yaml:"retry,omitempty"`
}

// Store configures the persistence backend for sessions and designs.
type Store struct {
	Backend string `yaml:"backend"` // memory or sqlite
	Path    string `yaml:"path,omitempty"`
}

// Oracle configures how designs are scored.
type Oracle struct {
	Mode           string  `yaml:"mode"` // sim or http
	URL            string  `yaml:"url,omitempty"`
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"`
	RatePerSecond  float64 `yaml:"rate_per_second,omitempty"`
}

// Retry configures the bounded exponential backoff for oracle calls.
type Retry struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMs int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// Optimization configures loop behavior for a run.
type Optimization struct {
	Objective      string  `yaml:"objective"`
	ClMin          float64 `yaml:"cl_min"`
	Reynolds       int     `yaml:"reynolds"`
	MaxIterations  int     `yaml:"max_iterations"`
	CandidateCount int     `yaml:"candidate_count"`
	SafetyLimit    int     `yaml:"safety_limit"`
	Timeout        string  `yaml:"timeout"` // e.g. "2h"
	Seed           int64   `yaml:"seed,omitempty"`
}

// Range is a closed parameter interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds holds the hard per-parameter bounds candidates are clipped to.
type Bounds struct {
	Thickness      Range `yaml:"thickness"`
	MaxCamber      Range `yaml:"max_camber"`
	CamberPosition Range `yaml:"camber_position"`
	Alpha          Range `yaml:"alpha"`
}

// DefaultBounds returns the NACA 4-series design-space bounds.
func DefaultBounds() Bounds {
	return Bounds{
		Thickness:      Range{Min: 0.08, Max: 0.20},
		MaxCamber:      Range{Min: 0.0, Max: 0.08},
		CamberPosition: Range{Min: 0.2, Max: 0.6},
		Alpha:          Range{Min: -2, Max: 10},
	}
}

// DefaultRetry returns the default oracle retry settings: up to 3 attempts
// with a doubling 10s base delay.
func DefaultRetry() Retry {
	return Retry{
		MaxAttempts: 3,
		BaseDelayMs: 10000,
		Multiplier:  2.0,
	}
}

// DefaultConfig returns a complete configuration with defaults applied.
func DefaultConfig() *Config {
	bounds := DefaultBounds()
	retry := DefaultRetry()
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Store:     Store{Backend: "memory"},
		Oracle:    Oracle{Mode: "sim", TimeoutSeconds: 120},
		Optimization: Optimization{
			Objective:      "minimize_cd",
			ClMin:          0.30,
			Reynolds:       500000,
			MaxIterations:  8,
			CandidateCount: 4,
			SafetyLimit:    20,
			Timeout:        "2h",
		},
		Bounds: &bounds,
		Retry:  &retry,
	}
}

// WallClockTimeout parses the configured run timeout, falling back to two
// hours when unset or unparseable.
func (c *Config) WallClockTimeout() time.Duration {
	if c.Optimization.Timeout == "" {
		return 2 * time.Hour
	}
	d, err := time.ParseDuration(c.Optimization.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}
