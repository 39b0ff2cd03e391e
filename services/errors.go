package services

import "errors"

// ErrConflict is the root of every rejection from the availability check.
var ErrConflict = errors.New("assignment conflict")

var (
	ErrWorkerNotDeployed = &ConflictError{Reason: "worker is not deployed"}
	ErrWorkerUnavailable = &ConflictError{Reason: "worker is not available"}
	ErrShiftConflict     = &ConflictError{Reason: "worker already has a task on this date and shift"}
)

var (
	ErrTaskNotFound      = errors.New("cleaning task not found")
	ErrWorkerNotFound    = errors.New("worker not found")
	ErrPropertyNotFound  = errors.New("property not found")
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrUnknownShift      = errors.New("unknown shift")
)

// ConflictError explains why a worker cannot take a shift. errors.Is(err, ErrConflict)
// holds for every ConflictError.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
