package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers map these to HTTP codes.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("operation not permitted")
	ErrConflict   = errors.New("resource state conflict")
	ErrExpired    = errors.New("resource has expired")
	ErrValidation = errors.New("validation failed")
	ErrGateway    = errors.New("payment gateway failure")
)

// SeatConflictError reports seats that are no longer available
type SeatConflictError struct {
	Seats []int
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats no longer available: %v", e.Seats)
}

// Is allows errors.Is(err, ErrConflict) to match seat conflicts
func (e *SeatConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError wraps a field-level message under ErrValidation
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
