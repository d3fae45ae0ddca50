package oracle

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: timeouts, rate limits,
// or a temporarily unavailable scoring service.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient oracle error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ValidationError marks a rejected request. Retrying the same design
// cannot succeed, so these are never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("oracle rejected design: %s", e.Reason)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
