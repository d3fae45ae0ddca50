package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSessionConfig checks a session configuration at the boundary.
// Malformed configurations are rejected rather than passed through.
func ValidateSessionConfig(cfg SessionConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	return nil
}

// ValidateParameters checks a parameter vector against the hard physical
// bounds before it crosses the oracle boundary.
func ValidateParameters(p Parameters) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid design parameters: %w", err)
	}
	return nil
}
