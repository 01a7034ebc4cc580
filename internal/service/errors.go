package service

import (
	"errors"
	"fmt"
)

// Errors shared by every service. The api layer maps them to HTTP statuses.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid input")
)

// validationError wraps ErrValidation with a caller-facing detail.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
