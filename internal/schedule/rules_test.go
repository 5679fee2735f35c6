package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestCandidateWindowsWeekdayRules(t *testing.T) {
	loc := newYork(t)
	rs := RuleSet{
		Timezone: "America/New_York",
		Rules: []WeeklyRule{
			{Weekday: time.Monday, Start: "09:00", End: "17:00"},
			{Weekday: time.Tuesday, Start: "10:00", End: "12:00"},
		},
	}

	// Monday 2026-03-02, EST (UTC-5)
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	windows, err := rs.CandidateWindows(monday, loc)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC), windows[0].End)

	// Wednesday has no rule
	wednesday := monday.AddDate(0, 0, 2)
	windows, err = rs.CandidateWindows(wednesday, loc)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestCandidateWindowsSplitShiftsMerge(t *testing.T) {
	loc := newYork(t)
	rs := RuleSet{
		Timezone: "America/New_York",
		Rules: []WeeklyRule{
			{Weekday: time.Monday, Start: "13:00", End: "17:00"},
			{Weekday: time.Monday, Start: "09:00", End: "12:00"},
			{Weekday: time.Monday, Start: "11:00", End: "13:30"}, // overlaps both
		},
	}

	windows, err := rs.CandidateWindows(time.Date(2026, 3, 2, 0, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, loc).UTC(), windows[0].Start)
	assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, loc).UTC(), windows[0].End)
}

func TestCandidateWindowsOverridePrecedence(t *testing.T) {
	loc := newYork(t)
	rs := RuleSet{
		Timezone: "America/New_York",
		Rules:    []WeeklyRule{{Weekday: time.Monday, Start: "09:00", End: "17:00"}},
		Overrides: []DateOverride{
			{Date: "2026-03-02", Windows: []OverrideWindow{{Start: "14:00", End: "16:00"}}},
			{Date: "2026-03-09", Unavailable: true},
		},
	}

	// override with explicit windows replaces the weekly rule
	windows, err := rs.CandidateWindows(time.Date(2026, 3, 2, 0, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, loc).UTC(), windows[0].Start)
	assert.Equal(t, time.Date(2026, 3, 2, 16, 0, 0, 0, loc).UTC(), windows[0].End)

	// blackout date yields nothing despite the weekly rule
	windows, err = rs.CandidateWindows(time.Date(2026, 3, 9, 0, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

// 2026-03-08 is the US spring-forward date: local 02:00-03:00 does not exist.
func TestCandidateWindowsSpringForward(t *testing.T) {
	loc := newYork(t)
	day := time.Date(2026, 3, 8, 0, 0, 0, 0, loc)

	// A window straddling the gap keeps positive duration: 01:00 EST to
	// 03:00 EDT is one real hour.
	rs := RuleSet{
		Timezone: "America/New_York",
		Rules:    []WeeklyRule{{Weekday: time.Sunday, Start: "01:00", End: "03:00"}},
	}
	windows, err := rs.CandidateWindows(day, loc)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].IsValid())
	assert.Equal(t, time.Hour, windows[0].Duration())

	// A window entirely inside the gap normalizes to nothing and is dropped,
	// never emitted as a malformed or negative-duration window.
	rs.Rules = []WeeklyRule{{Weekday: time.Sunday, Start: "02:00", End: "03:00"}}
	windows, err = rs.CandidateWindows(day, loc)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestCandidateWindowsTolerateSecondsSuffix(t *testing.T) {
	loc := newYork(t)
	rs := RuleSet{
		Timezone: "America/New_York",
		Rules:    []WeeklyRule{{Weekday: time.Monday, Start: "09:00:00", End: "17:00:00"}},
	}
	windows, err := rs.CandidateWindows(time.Date(2026, 3, 2, 0, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	require.Len(t, windows, 1)
}

func TestValidateClockWindow(t *testing.T) {
	assert.NoError(t, ValidateClockWindow("09:00", "17:00"))
	assert.Error(t, ValidateClockWindow("17:00", "09:00"), "inverted")
	assert.Error(t, ValidateClockWindow("09:00", "09:00"), "zero length")
	assert.Error(t, ValidateClockWindow("22:00", "02:00"), "cross midnight")
	assert.Error(t, ValidateClockWindow("9am", "17:00"), "unparseable")
}

func TestRuleSetConfigured(t *testing.T) {
	assert.False(t, RuleSet{}.Configured())
	assert.False(t, RuleSet{Timezone: "UTC"}.Configured())
	assert.False(t, RuleSet{Rules: []WeeklyRule{{}}}.Configured())
	assert.True(t, RuleSet{Timezone: "UTC", Rules: []WeeklyRule{{}}}.Configured())
	assert.True(t, RuleSet{Timezone: "UTC", Overrides: []DateOverride{{}}}.Configured())
}
