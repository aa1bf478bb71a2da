/*
errors.go - Error types for ledger construction and mutation

ERROR CATEGORIES:
  1. Validation - missing or malformed input (ValidationError)
  2. Range - end before start (InvalidRangeError)
  3. Zero duration - a non-initial range without business days (ZeroDurationError)
  4. Authorization - mutation attempted by a non-admin (UnauthorizedError)
  5. Lookup - referenced record does not exist (NotFoundError)

All are local to one construction/mutation attempt and never fatal. The
calendar calculators never return errors; they degrade to zero metrics.

USAGE:
  if errors.Is(err, ledger.ErrZeroDuration) { ... }

  var ve *ledger.ValidationError
  if errors.As(err, &ve) { field := ve.Field }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/opsdesk/vacation-ledger/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidRange = errors.New("invalid range: end before start")
	ErrZeroDuration = errors.New("range contains no business days")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidRangeError is returned when End is before Start.
type InvalidRangeError struct {
	Start calendar.Date
	End   calendar.Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s is before start %s", e.End, e.Start)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// ZeroDurationError is returned when a SCHEDULED or DEDUCTION range has no
// business days (weekends and holidays only).
type ZeroDurationError struct {
	Start        calendar.Date
	End          calendar.Date
	Jurisdiction calendar.Jurisdiction
}

func (e *ZeroDurationError) Error() string {
	return fmt.Sprintf("range %s to %s has no business days in %s/%s",
		e.Start, e.End, e.Jurisdiction.State, e.Jurisdiction.SubUnit)
}

func (e *ZeroDurationError) Unwrap() error { return ErrZeroDuration }

// UnauthorizedError is returned when a non-admin attempts a mutation.
type UnauthorizedError struct {
	ActorID string
	Action  string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %q is not allowed to %s", e.ActorID, e.Action)
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// NotFoundError names the missing record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrZeroDuration) ||
		errors.Is(err, calendar.ErrInvalidHoliday)
}

func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
