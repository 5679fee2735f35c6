package schedule

import (
	"context"
	"fmt"
	"time"
)

// Slot is a bookable window of exactly the requested duration. It is a
// point-in-time projection: valid only until the next booking mutation for
// that user, never a reservation.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// SlotRequest parameterizes slot generation. Zero fields fall back to the
// engine defaults; MinNotice is a pointer so that an explicit zero notice is
// distinguishable from "use the default".
//
// FromDate optionally pins the first day searched, as a "2006-01-02" date in
// the user's configured timezone; dates in the past are ignored. The day
// anchor is computed here, after the user's zone is known, because no single
// instant chosen by the caller lands on the right calendar day in every zone.
//
// LabelZone optionally renders labels in a zone other than the user's (the
// guest's browser zone, typically); an unknown zone name falls back to the
// user's zone.
type SlotRequest struct {
	Duration    time.Duration
	Granularity time.Duration
	MinNotice   *time.Duration
	MaxSlots    int
	HorizonDays int
	FromDate    string
	LabelZone   string
}

func (e *Engine) normalize(req SlotRequest) SlotRequest {
	if req.Duration <= 0 {
		req.Duration = e.defaults.Duration
	}
	if req.Granularity <= 0 {
		req.Granularity = e.defaults.Granularity
	}
	if req.MinNotice == nil {
		notice := e.defaults.MinNotice
		req.MinNotice = &notice
	} else if *req.MinNotice < 0 {
		var zero time.Duration
		req.MinNotice = &zero
	}
	if req.MaxSlots <= 0 {
		req.MaxSlots = e.defaults.MaxSlots
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = e.defaults.HorizonDays
	}
	return req
}

// AvailableSlots computes the ordered, finite list of bookable slots for a
// user. An empty list is a valid answer (nothing free within the horizon);
// errors are reserved for unknown users, missing configuration and store
// failures.
func (e *Engine) AvailableSlots(ctx context.Context, userID string, req SlotRequest) ([]Slot, error) {
	req = e.normalize(req)

	rs, err := e.rules.RuleSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rs.Configured() {
		return nil, ErrSetupRequired
	}
	loc, err := time.LoadLocation(rs.Timezone)
	if err != nil {
		return nil, ErrSetupRequired
	}

	now := e.now().UTC()
	earliest := now.Add(*req.MinNotice)

	firstDay := localMidnight(now, loc)
	if req.FromDate != "" {
		pinned, err := time.ParseInLocation("2006-01-02", req.FromDate, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", req.FromDate, err)
		}
		if pinned.After(firstDay) {
			firstDay = pinned
		}
	}
	rangeEnd := firstDay.AddDate(0, 0, req.HorizonDays)

	labelLoc := loc
	if req.LabelZone != "" {
		if hinted, err := time.LoadLocation(req.LabelZone); err == nil {
			labelLoc = hinted
		}
	}

	busy, err := e.busyIntervals(ctx, userID, firstDay.UTC(), rangeEnd.UTC())
	if err != nil {
		return nil, err
	}

	slots := []Slot{}
	for i := 0; i < req.HorizonDays; i++ {
		day := firstDay.AddDate(0, 0, i)
		candidates, err := rs.CandidateWindows(day, loc)
		if err != nil {
			return nil, err
		}
		for _, cand := range candidates {
			for _, free := range Subtract(cand, busy) {
				for s := free.Start; !s.Add(req.Duration).After(free.End); s = s.Add(req.Granularity) {
					if s.Before(earliest) {
						continue
					}
					slots = append(slots, Slot{
						Start: s,
						End:   s.Add(req.Duration),
						Label: DayLabel(s, now, labelLoc),
					})
					if len(slots) >= req.MaxSlots {
						return slots, nil
					}
				}
			}
		}
	}
	return slots, nil
}

// DayLabel renders the human label for a slot: "Today"/"Tomorrow" for local
// day offsets 0/1, the weekday name for offsets 2-6, and "Mon, Jan 5" style
// beyond that. The offset is the difference between local calendar days in
// the user's timezone, not absolute-time distance, so a slot just past local
// midnight labels correctly.
func DayLabel(slotStart, now time.Time, loc *time.Location) string {
	offset := localDayNumber(slotStart, loc) - localDayNumber(now, loc)
	local := slotStart.In(loc)
	switch {
	case offset <= 0:
		return "Today"
	case offset == 1:
		return "Tomorrow"
	case offset < 7:
		return local.Weekday().String()
	default:
		return local.Format("Mon, Jan 2")
	}
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// localDayNumber counts the local calendar date as days since the Unix epoch.
// Re-anchoring the date in UTC keeps every day exactly 86400s long, so DST
// days do not skew the offset.
func localDayNumber(t time.Time, loc *time.Location) int {
	year, month, day := t.In(loc).Date()
	return int(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
