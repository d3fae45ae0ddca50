package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses YAML configuration data, applies defaults for
// omitted sections, and validates the result.
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Oracle.Mode == "" {
		cfg.Oracle.Mode = "sim"
	}
	if cfg.Oracle.TimeoutSeconds <= 0 {
		cfg.Oracle.TimeoutSeconds = 120
	}
	if cfg.Bounds == nil {
		bounds := DefaultBounds()
		cfg.Bounds = &bounds
	}
	if cfg.Retry == nil {
		retry := DefaultRetry()
		cfg.Retry = &retry
	}
	opt := &cfg.Optimization
	if opt.Objective == "" {
		opt.Objective = "minimize_cd"
	}
	if opt.ClMin == 0 {
		opt.ClMin = 0.30
	}
	if opt.Reynolds == 0 {
		opt.Reynolds = 500000
	}
	if opt.MaxIterations == 0 {
		opt.MaxIterations = 8
	}
	if opt.CandidateCount == 0 {
		opt.CandidateCount = 4
	}
	if opt.SafetyLimit == 0 {
		opt.SafetyLimit = 20
	}
	if opt.Timeout == "" {
		opt.Timeout = "2h"
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store backend sqlite requires path")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory or sqlite)", cfg.Store.Backend)
	}

	switch cfg.Oracle.Mode {
	case "sim":
	case "http":
		if cfg.Oracle.URL == "" {
			return fmt.Errorf("oracle mode http requires url")
		}
	default:
		return fmt.Errorf("invalid oracle mode: %s (must be sim or http)", cfg.Oracle.Mode)
	}
	if cfg.Oracle.RatePerSecond < 0 {
		return fmt.Errorf("oracle rate_per_second cannot be negative")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}
	if cfg.Retry.BaseDelayMs < 0 {
		return fmt.Errorf("retry base_delay_ms cannot be negative")
	}
	if cfg.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1")
	}

	opt := cfg.Optimization
	if opt.Objective != "minimize_cd" {
		return fmt.Errorf("invalid objective: %s (only minimize_cd is supported)", opt.Objective)
	}
	if opt.ClMin < 0 {
		return fmt.Errorf("cl_min cannot be negative")
	}
	if opt.Reynolds <= 0 {
		return fmt.Errorf("reynolds must be positive")
	}
	if opt.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1")
	}
	if opt.CandidateCount < 1 {
		return fmt.Errorf("candidate_count must be at least 1")
	}
	if opt.SafetyLimit < opt.MaxIterations {
		return fmt.Errorf("safety_limit (%d) must not be below max_iterations (%d)", opt.SafetyLimit, opt.MaxIterations)
	}

	if err := validateBounds(cfg.Bounds); err != nil {
		return err
	}

	return nil
}

func validateBounds(b *Bounds) error {
	hard := DefaultBounds()
	checks := []struct {
		name       string
		got, limit Range
	}{
		{"thickness", b.Thickness, hard.Thickness},
		{"max_camber", b.MaxCamber, hard.MaxCamber},
		{"camber_position", b.CamberPosition, hard.CamberPosition},
		{"alpha", b.Alpha, hard.Alpha},
	}
	for _, c := range checks {
		if c.got.Min >= c.got.Max {
			return fmt.Errorf("bounds %s: min (%v) must be below max (%v)", c.name, c.got.Min, c.got.Max)
		}
		if c.got.Min < c.limit.Min || c.got.Max > c.limit.Max {
			return fmt.Errorf("bounds %s: [%v, %v] exceeds hard limits [%v, %v]",
				c.name, c.got.Min, c.got.Max, c.limit.Min, c.limit.Max)
		}
	}
	return nil
}
