/*
errors.go - Centralized error types for the engine

ERROR CATEGORIES:
  1. Configuration errors - invalid start day, malformed period key.
     Rejected at the boundary before any generation starts.
  2. Transient lookup failures - adjustment or prior-period reads.
     Recovered locally by the cold-start evaluator path; never surfaced.
  3. Generation failures - one period failed even after an isolated
     retry. Surfaced as *PeriodGenerationError carrying the period key.

USAGE:
  if errors.Is(err, engine.ErrGenerationFailed) {
      var pge *engine.PeriodGenerationError
      errors.As(err, &pge) // pge.PeriodKey names the stale period
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidStartDay is returned when a financial-month start day is
	// outside [1, 31]. Configuration-time error, never clamped silently.
	ErrInvalidStartDay = errors.New("financial period start day must be between 1 and 31")

	// ErrInvalidPeriodKey is returned for keys not matching YYYY-MM.
	ErrInvalidPeriodKey = errors.New("malformed period key")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrGenerationFailed wraps a period whose regeneration failed twice.
	ErrGenerationFailed = errors.New("journal generation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PeriodGenerationError reports the period whose regeneration failed even
// after an isolated retry. The caller decides whether to retry later or
// accept the stale period.
type PeriodGenerationError struct {
	PeriodKey string
	Scope     Scope
	Err       error
}

func (e *PeriodGenerationError) Error() string {
	return fmt.Sprintf("generation failed for period %s (%s): %v", e.PeriodKey, e.Scope, e.Err)
}

func (e *PeriodGenerationError) Unwrap() error { return ErrGenerationFailed }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStartDay) ||
		errors.Is(err, ErrInvalidPeriodKey) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}
