package negotiation

import "errors"

// The engine reports failures in four user-recoverable kinds. Nothing here is
// fatal: handlers translate each kind to a response and the app keeps going.

// ValidationError means the input itself is out of bounds (counter price
// outside the allowed band). Retrying the same input will never succeed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConflictError means current state disallows the operation (a counter is
// already pending, the ride is already confirmed). The caller may retry
// after state changes.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// ErrNotFound is returned when the referenced ride, offer, or counter does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicatePending is returned by a Store when inserting a counter offer
// collides with the store-side one-pending-per-(ride,driver,side) constraint.
var ErrDuplicatePending = errors.New("pending counter offer already exists")

func validationf(reason string) error { return &ValidationError{Reason: reason} }
func conflictf(reason string) error   { return &ConflictError{Reason: reason} }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
