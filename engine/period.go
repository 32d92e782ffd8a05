/*
period.go - Period boundaries for calendar and financial months

PURPOSE:
  Computes the enclosing period for any date under two incompatible
  calendar models:
    - Calendar month: first day through last day of the month
    - Financial month: a configurable start day D; the period runs from
      day D of one month to the day before day D of the next month

CLAMPING:
  When D exceeds a month's length, the start anchor is clamped to that
  month's last day. The period END is always the day before the NEXT
  month's clamped anchor, which keeps periods contiguous even around
  short months (start day 31 across February yields Jan 31 - Feb 27,
  Feb 28 - Mar 30, Mar 31 - ...).

PERIOD KEY AND LABEL:
  Both are taken from the calendar month containing the period's END.
  With start day 15, the period 2025-02-15 .. 2025-03-14 has key
  "2025-03" and label "March 2025".

SYMMETRY:
  NextPeriodStart(PreviousPeriod(P)) == P.Start for every period P under
  either policy. Propagation relies on this to walk the timeline in both
  directions without drift.
*/
package engine

import (
	"time"
)

// =============================================================================
// PERIOD - A contiguous span of days with a key and a label
// =============================================================================

type PeriodKind string

const (
	PeriodCalendar  PeriodKind = "calendar"
	PeriodFinancial PeriodKind = "financial"
)

// Period is an inclusive day range [Start, End].
// Two periods of the same policy never overlap and tile the timeline.
type Period struct {
	Start TimePoint
	End   TimePoint
	Kind  PeriodKind
}

// Contains reports whether the day falls within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Key returns the YYYY-MM of the calendar month containing the period end.
func (p Period) Key() string {
	return p.End.normalize().Format("2006-01")
}

// Label returns the display name of the period, e.g. "March 2025".
func (p Period) Label() string {
	return p.End.normalize().Format("January 2006")
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD POLICY - Which calendar model is in force
// =============================================================================

// PeriodPolicy selects the calendar model. Construct with CalendarPolicy or
// NewFinancialPolicy; the zero value behaves as the calendar policy.
type PeriodPolicy struct {
	Kind     PeriodKind
	StartDay int // financial only, 1..31
}

func CalendarPolicy() PeriodPolicy {
	return PeriodPolicy{Kind: PeriodCalendar}
}

// NewFinancialPolicy rejects start days outside [1, 31] at configuration
// time. Clamping to short months happens per-month, never here.
func NewFinancialPolicy(startDay int) (PeriodPolicy, error) {
	if startDay < 1 || startDay > 31 {
		return PeriodPolicy{}, ErrInvalidStartDay
	}
	return PeriodPolicy{Kind: PeriodFinancial, StartDay: startDay}, nil
}

// PolicyFromPreferences builds the active policy from user preferences.
func PolicyFromPreferences(p Preferences) (PeriodPolicy, error) {
	if !p.FinancialPeriodEnabled() {
		return CalendarPolicy(), nil
	}
	return NewFinancialPolicy(p.FinancialPeriodStartDay())
}

// anchor returns the period start anchor for a month: day StartDay, clamped
// to the month's length.
func (pp PeriodPolicy) anchor(year int, month time.Month) TimePoint {
	day := pp.StartDay
	if dim := daysInMonth(year, month); day > dim {
		day = dim
	}
	return NewTimePoint(year, month, day)
}

// PeriodOf returns the period enclosing the given date.
func (pp PeriodPolicy) PeriodOf(date TimePoint) Period {
	if pp.Kind != PeriodFinancial {
		return Period{
			Start: StartOfMonth(date.Year(), date.Month()),
			End:   EndOfMonth(date.Year(), date.Month()),
			Kind:  PeriodCalendar,
		}
	}

	start := pp.anchor(date.Year(), date.Month())
	if date.Before(start) {
		py, pm := prevMonth(date.Year(), date.Month())
		start = pp.anchor(py, pm)
	}
	ny, nm := nextMonth(start.Year(), start.Month())
	end := pp.anchor(ny, nm).AddDays(-1)
	return Period{Start: start, End: end, Kind: PeriodFinancial}
}

// PreviousPeriod returns the period immediately before p.
func (pp PeriodPolicy) PreviousPeriod(p Period) Period {
	return pp.PeriodOf(p.Start.AddDays(-1))
}

// NextPeriod returns the period immediately after p.
func (pp PeriodPolicy) NextPeriod(p Period) Period {
	return pp.PeriodOf(p.End.AddDays(1))
}

// NextPeriodStart returns the first day of the period following p.
func (pp PeriodPolicy) NextPeriodStart(p Period) TimePoint {
	return p.End.AddDays(1)
}

// =============================================================================
// PERIOD KEYS
// =============================================================================

// ParsePeriodKey validates a YYYY-MM key and returns its year and month.
func ParsePeriodKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, ErrInvalidPeriodKey
	}
	return t.Year(), t.Month(), nil
}

// PeriodForKey returns the period whose end falls in the keyed calendar
// month. For the financial policy with start day > 1 this is the period
// anchored in the preceding month.
func (pp PeriodPolicy) PeriodForKey(key string) (Period, error) {
	year, month, err := ParsePeriodKey(key)
	if err != nil {
		return Period{}, err
	}
	if pp.Kind != PeriodFinancial || pp.StartDay == 1 {
		return pp.PeriodOf(NewTimePoint(year, month, 1)), nil
	}
	py, pm := prevMonth(year, month)
	return pp.PeriodOf(pp.anchor(py, pm)), nil
}
