package schedule

import (
	"fmt"
	"time"
)

// WeeklyRule is one recurring working-hours window. Times are local wall
// clock in "15:04" form; several rules may share a weekday (split shifts).
type WeeklyRule struct {
	Weekday time.Weekday
	Start   string
	End     string
}

// OverrideWindow is an explicit local window inside a DateOverride.
type OverrideWindow struct {
	Start string
	End   string
}

// DateOverride replaces the weekly rules for one local calendar date.
// Unavailable blanks the whole day; otherwise Windows are used verbatim.
type DateOverride struct {
	Date        string // "2006-01-02" in the user's timezone
	Unavailable bool
	Windows     []OverrideWindow
}

// RuleSet is everything the resolver needs for one user: the configured
// timezone, the recurring weekly rules and any date overrides.
type RuleSet struct {
	Timezone  string
	Rules     []WeeklyRule
	Overrides []DateOverride
}

// Configured reports whether the user has anything bookable set up.
func (rs RuleSet) Configured() bool {
	return rs.Timezone != "" && (len(rs.Rules) > 0 || len(rs.Overrides) > 0)
}

// CandidateWindows resolves the rule set for the local calendar day containing
// ref (any instant within that day, interpreted in loc). An override for the
// exact date wins over weekly rules; an unavailable override yields nothing.
// The result is sorted, merged and may be empty.
//
// Conversion goes through time.Date with the user's location, so wall-clock
// times that do not exist on a DST transition day are normalized forward by
// the standard library. A window that collapses to zero or negative length
// after normalization is dropped. Cross-midnight windows are rejected when the
// rule is written, so every window here stays within one calendar day.
func (rs RuleSet) CandidateWindows(ref time.Time, loc *time.Location) ([]Window, error) {
	year, month, day := ref.In(loc).Date()
	date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)

	for _, ov := range rs.Overrides {
		if ov.Date != date {
			continue
		}
		if ov.Unavailable {
			return nil, nil
		}
		windows := make([]Window, 0, len(ov.Windows))
		for _, w := range ov.Windows {
			win, err := localWindow(year, month, day, w.Start, w.End, loc)
			if err != nil {
				return nil, err
			}
			if win.IsValid() {
				windows = append(windows, win)
			}
		}
		return Merge(windows), nil
	}

	weekday := time.Date(year, month, day, 12, 0, 0, 0, loc).Weekday()

	var windows []Window
	for _, r := range rs.Rules {
		if r.Weekday != weekday {
			continue
		}
		win, err := localWindow(year, month, day, r.Start, r.End, loc)
		if err != nil {
			return nil, err
		}
		if win.IsValid() {
			windows = append(windows, win)
		}
	}
	return Merge(windows), nil
}

func localWindow(year int, month time.Month, day int, start, end string, loc *time.Location) (Window, error) {
	sh, sm, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	eh, em, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{
		Start: time.Date(year, month, day, sh, sm, 0, 0, loc).UTC(),
		End:   time.Date(year, month, day, eh, em, 0, 0, loc).UTC(),
	}, nil
}

// ParseClock parses a local wall-clock time. Accepts "15:04" and tolerates a
// trailing seconds component as stored by Postgres time columns.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) < 5 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	t, err := time.Parse("15:04", s[:5])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidateClockWindow checks a start/end wall-clock pair as submitted through
// the settings API: both must parse and end must be strictly after start,
// which also rules out cross-midnight windows.
func ValidateClockWindow(start, end string) error {
	sh, sm, err := ParseClock(start)
	if err != nil {
		return err
	}
	eh, em, err := ParseClock(end)
	if err != nil {
		return err
	}
	if eh*60+em <= sh*60+sm {
		return fmt.Errorf("end_time %q must be after start_time %q within the same day", end, start)
	}
	return nil
}
