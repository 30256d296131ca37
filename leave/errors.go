/*
errors.go - Sentinel errors for the leave domain

ERROR CATEGORIES:
  1. Not-found - only raised by operations that need an existing record to
     proceed (submitting for a user, changing a request's status). Plain
     lookups signal absence with a nil result instead.
  2. Validation - caller supplied a value the domain cannot accept
  3. Conflict - caller-enforced uniqueness violated

USAGE:
    if errors.Is(err, leave.ErrUserNotFound) { ... }
*/
package leave

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("request not found")

	ErrInvalidStatus = errors.New("invalid request status")
	ErrInvalidRole   = errors.New("invalid role")
	ErrEmptyUsername = errors.New("username must not be empty")

	ErrNegativeAllotment = errors.New("annual and carry-over days must not be negative")
	ErrInvalidDate       = errors.New("invalid date")

	ErrUsernameTaken = errors.New("username already taken")
)

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrRequestNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrEmptyUsername) ||
		errors.Is(err, ErrNegativeAllotment) ||
		errors.Is(err, ErrInvalidDate)
}

// IsConflict returns true if the error is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUsernameTaken)
}
