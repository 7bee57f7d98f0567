package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the sentinel every ValidationError unwraps to.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedFrequency is returned for CUSTOM schedules, which are stored but not computed.
	ErrUnsupportedFrequency = errors.New("frequency not supported yet")

	ErrNotFound = errors.New("schedule not found")
)

// ValidationError reports a missing or out-of-range anchor field. It is a
// configuration defect: reject the edit that produced it instead of retrying.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
