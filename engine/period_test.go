package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/ledger-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) engine.TimePoint {
	return engine.NewTimePoint(y, m, d)
}

func financial(t *testing.T, startDay int) engine.PeriodPolicy {
	t.Helper()
	policy, err := engine.NewFinancialPolicy(startDay)
	if err != nil {
		t.Fatalf("unexpected error for start day %d: %v", startDay, err)
	}
	return policy
}

// =============================================================================
// CALENDAR PERIODS
// =============================================================================

func TestCalendarPeriod_FullMonth(t *testing.T) {
	// GIVEN: Calendar policy
	// WHEN: Computing the period of a mid-month date
	// THEN: Period spans the first through the last day of that month

	policy := engine.CalendarPolicy()
	p := policy.PeriodOf(day(2025, time.February, 14))

	if !p.Start.Equal(day(2025, time.February, 1)) {
		t.Errorf("expected start 2025-02-01, got %s", p.Start)
	}
	if !p.End.Equal(day(2025, time.February, 28)) {
		t.Errorf("expected end 2025-02-28, got %s", p.End)
	}
	if p.Key() != "2025-02" {
		t.Errorf("expected key 2025-02, got %s", p.Key())
	}
	if p.Label() != "February 2025" {
		t.Errorf("expected label 'February 2025', got %s", p.Label())
	}
}

func TestCalendarPeriod_LeapFebruary(t *testing.T) {
	policy := engine.CalendarPolicy()
	p := policy.PeriodOf(day(2024, time.February, 29))

	if !p.End.Equal(day(2024, time.February, 29)) {
		t.Errorf("expected end 2024-02-29, got %s", p.End)
	}
}

// =============================================================================
// FINANCIAL PERIODS
// =============================================================================

func TestFinancialPeriod_SpansMonthBoundary(t *testing.T) {
	// GIVEN: Financial policy with start day 15
	// WHEN: Computing the period of 2025-02-20
	// THEN: Period is 2025-02-15 .. 2025-03-14, keyed and labeled by March

	policy := financial(t, 15)
	p := policy.PeriodOf(day(2025, time.February, 20))

	if !p.Start.Equal(day(2025, time.February, 15)) {
		t.Errorf("expected start 2025-02-15, got %s", p.Start)
	}
	if !p.End.Equal(day(2025, time.March, 14)) {
		t.Errorf("expected end 2025-03-14, got %s", p.End)
	}
	if p.Key() != "2025-03" {
		t.Errorf("expected key 2025-03, got %s", p.Key())
	}
	if p.Label() != "March 2025" {
		t.Errorf("expected label 'March 2025', got %s", p.Label())
	}
}

func TestFinancialPeriod_BeforeAnchorFallsInPreviousPeriod(t *testing.T) {
	// GIVEN: Financial policy with start day 15
	// WHEN: Computing the period of 2025-02-10 (before the February anchor)
	// THEN: The enclosing period starts on the January anchor

	policy := financial(t, 15)
	p := policy.PeriodOf(day(2025, time.February, 10))

	if !p.Start.Equal(day(2025, time.January, 15)) {
		t.Errorf("expected start 2025-01-15, got %s", p.Start)
	}
	if !p.End.Equal(day(2025, time.February, 14)) {
		t.Errorf("expected end 2025-02-14, got %s", p.End)
	}
}

func TestFinancialPeriod_StartDay31_ClampsAroundFebruary(t *testing.T) {
	// GIVEN: Financial policy with start day 31
	// WHEN: Walking the periods around February 2025 (28 days)
	// THEN: Anchors clamp to short months and the periods stay contiguous

	policy := financial(t, 31)

	p := policy.PeriodOf(day(2025, time.February, 10))
	if !p.Start.Equal(day(2025, time.January, 31)) || !p.End.Equal(day(2025, time.February, 27)) {
		t.Errorf("expected [2025-01-31, 2025-02-27], got %s", p)
	}

	next := policy.NextPeriod(p)
	if !next.Start.Equal(day(2025, time.February, 28)) || !next.End.Equal(day(2025, time.March, 30)) {
		t.Errorf("expected [2025-02-28, 2025-03-30], got %s", next)
	}

	after := policy.NextPeriod(next)
	if !after.Start.Equal(day(2025, time.March, 31)) {
		t.Errorf("expected start 2025-03-31, got %s", after.Start)
	}
}

func TestFinancialPeriod_Contiguity_AllStartDays(t *testing.T) {
	// GIVEN: Every legal start day
	// WHEN: Walking two years of periods from 2024-01-01
	// THEN: Each period starts exactly one day after its predecessor ends,
	//       and PreviousPeriod/NextPeriod are inverses

	for startDay := 1; startDay <= 31; startDay++ {
		policy := financial(t, startDay)
		p := policy.PeriodOf(day(2024, time.January, 1))

		for i := 0; i < 24; i++ {
			next := policy.NextPeriod(p)
			if !next.Start.Equal(p.End.AddDays(1)) {
				t.Fatalf("start day %d: gap between %s and %s", startDay, p, next)
			}
			if !policy.NextPeriodStart(policy.PreviousPeriod(next)).Equal(next.Start) {
				t.Fatalf("start day %d: previous/next asymmetry at %s", startDay, next)
			}
			back := policy.PreviousPeriod(next)
			if !back.Start.Equal(p.Start) || !back.End.Equal(p.End) {
				t.Fatalf("start day %d: PreviousPeriod(NextPeriod(%s)) = %s", startDay, p, back)
			}
			p = next
		}
	}
}

func TestNewFinancialPolicy_RejectsInvalidStartDays(t *testing.T) {
	for _, startDay := range []int{0, -1, 32, 100} {
		if _, err := engine.NewFinancialPolicy(startDay); !errors.Is(err, engine.ErrInvalidStartDay) {
			t.Errorf("start day %d: expected ErrInvalidStartDay, got %v", startDay, err)
		}
	}
}

// =============================================================================
// PERIOD KEYS
// =============================================================================

func TestPeriodForKey_Calendar(t *testing.T) {
	policy := engine.CalendarPolicy()
	p, err := policy.PeriodForKey("2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(day(2025, time.March, 1)) || !p.End.Equal(day(2025, time.March, 31)) {
		t.Errorf("expected March 2025, got %s", p)
	}
}

func TestPeriodForKey_Financial_RoundTripsWithKey(t *testing.T) {
	// GIVEN: Financial policy with start day 15
	// WHEN: Looking up the period for key "2025-03"
	// THEN: The result is the period whose end falls in March, and its own
	//       Key() agrees

	policy := financial(t, 15)
	p, err := policy.PeriodForKey("2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(day(2025, time.February, 15)) || !p.End.Equal(day(2025, time.March, 14)) {
		t.Errorf("expected [2025-02-15, 2025-03-14], got %s", p)
	}
	if p.Key() != "2025-03" {
		t.Errorf("key round trip failed: got %s", p.Key())
	}
}

func TestPeriodForKey_RejectsMalformedKeys(t *testing.T) {
	policy := engine.CalendarPolicy()
	for _, key := range []string{"", "2025", "2025-13", "03-2025", "2025-3", "garbage"} {
		if _, err := policy.PeriodForKey(key); !errors.Is(err, engine.ErrInvalidPeriodKey) {
			t.Errorf("key %q: expected ErrInvalidPeriodKey, got %v", key, err)
		}
	}
}

func TestPolicyFromPreferences(t *testing.T) {
	// GIVEN: Preferences with financial periods disabled
	// THEN: The calendar policy is selected regardless of the start day
	policy, err := engine.PolicyFromPreferences(fakePrefs{enabled: false, startDay: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Kind != engine.PeriodCalendar {
		t.Errorf("expected calendar policy, got %s", policy.Kind)
	}

	// GIVEN: Financial periods enabled with a bad start day
	// THEN: Configuration fails
	if _, err := engine.PolicyFromPreferences(fakePrefs{enabled: true, startDay: 99}); !errors.Is(err, engine.ErrInvalidStartDay) {
		t.Errorf("expected ErrInvalidStartDay, got %v", err)
	}
}

type fakePrefs struct {
	enabled  bool
	startDay int
}

func (p fakePrefs) FinancialPeriodEnabled() bool { return p.enabled }
func (p fakePrefs) FinancialPeriodStartDay() int { return p.startDay }
