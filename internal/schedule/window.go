package schedule

import (
	"sort"
	"time"
)

// Window is a half-open [Start, End) interval in absolute time. All interval
// math happens on UTC instants; local time zones matter only when rules are
// resolved and when labels are rendered.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether w and o share any instant. Touching endpoints do
// not overlap: a meeting ending at 10:00 is compatible with one starting at 10:00.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// Contains reports whether o lies entirely within w.
func (w Window) Contains(o Window) bool {
	return !o.Start.Before(w.Start) && !o.End.After(w.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// IsValid reports whether the window has positive length.
func (w Window) IsValid() bool {
	return w.Start.Before(w.End)
}

// Subtract removes every busy window's intersection with base and returns the
// remaining free sub-windows in order. busy must be sorted by start and
// non-overlapping (the output of Merge).
func Subtract(base Window, busy []Window) []Window {
	free := []Window{}
	cursor := base.Start

	for _, b := range busy {
		if !b.Overlaps(base) {
			continue
		}
		if b.Start.After(cursor) {
			free = append(free, Window{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(base.End) {
			return free
		}
	}

	if cursor.Before(base.End) {
		free = append(free, Window{Start: cursor, End: base.End})
	}
	return free
}

// Merge sorts windows by start and coalesces any overlapping or touching
// windows into single ones. The result is sorted, non-overlapping and minimal.
// Zero or negative length windows are dropped. The input slice is not modified.
func Merge(windows []Window) []Window {
	valid := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.IsValid() {
			valid = append(valid, w)
		}
	}
	if len(valid) <= 1 {
		return valid
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := []Window{}
	current := valid[0]
	for _, next := range valid[1:] {
		// touching counts: [9,10) + [10,11) becomes [9,11)
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
