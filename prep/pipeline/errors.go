package pipeline

import (
	"errors"
	"fmt"
)

// PreparationError is the single error kind callers of this package ever
// observe. Every internal failure is wrapped into one at its origin; the
// outer boundary in Prepare normalizes anything residual.
type PreparationError struct {
	Message string
}

func (e *PreparationError) Error() string {
	return e.Message
}

// NewPreparationError builds a PreparationError from a format string.
func NewPreparationError(format string, args ...any) *PreparationError {
	return &PreparationError{Message: fmt.Sprintf(format, args...)}
}

// IsPreparationError reports whether err is (or wraps) a PreparationError.
func IsPreparationError(err error) bool {
	var pe *PreparationError
	return errors.As(err, &pe)
}
