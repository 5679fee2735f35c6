package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRules struct {
	rs  RuleSet
	err error
}

func (f *fakeRules) RuleSet(ctx context.Context, userID string) (RuleSet, error) {
	if f.err != nil {
		return RuleSet{}, f.err
	}
	return f.rs, nil
}

// fakeBookings mimics the store's atomic Insert: overlap is re-checked under
// a lock against everything inserted so far.
type fakeBookings struct {
	mu       sync.Mutex
	busy     []Window
	busyErr  error
	inserted []*Booking
}

func (f *fakeBookings) BusyWindows(ctx context.Context, userID string, from, to time.Time) ([]Window, error) {
	if f.busyErr != nil {
		return nil, f.busyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Window
	query := Window{Start: from, End: to}
	for _, w := range f.busy {
		if w.Overlaps(query) {
			out = append(out, w)
		}
	}
	for _, b := range f.inserted {
		w := Window{Start: b.Start, End: b.End}
		if w.Overlaps(query) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeBookings) Insert(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	requested := Window{Start: b.Start, End: b.End}
	for _, existing := range f.inserted {
		w := Window{Start: existing.Start, End: existing.End}
		if w.Overlaps(requested) {
			return &ConflictError{Busy: w}
		}
	}
	f.inserted = append(f.inserted, b)
	return nil
}

type fakeProvider struct {
	name  string
	busy  []Window
	err   error
	delay time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]Window, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.busy, nil
}

// Monday 2026-03-02, 08:00 in New York (13:00 UTC). EST, a week before the
// DST switch.
var testNow = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

func weekdayRules() RuleSet {
	return RuleSet{
		Timezone: "America/New_York",
		Rules: []WeeklyRule{
			{Weekday: time.Monday, Start: "09:00", End: "17:00"},
			{Weekday: time.Tuesday, Start: "09:00", End: "17:00"},
			{Weekday: time.Wednesday, Start: "09:00", End: "17:00"},
			{Weekday: time.Thursday, Start: "09:00", End: "17:00"},
			{Weekday: time.Friday, Start: "09:00", End: "17:00"},
		},
	}
}

func newTestEngine(rules RuleStore, bookings BookingStore, providers ...BusyProvider) *Engine {
	return NewEngine(rules, bookings, Options{
		Providers: providers,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return testNow },
		Defaults:  Defaults{MinNotice: 0},
	})
}

// nyTime builds an instant on the test Monday's week in New York local time.
func nyTime(t *testing.T, day, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2026, 3, day, hour, minute, 0, 0, loc).UTC()
}

func TestBookHappyPath(t *testing.T) {
	bookings := &fakeBookings{}
	e := newTestEngine(&fakeRules{rs: weekdayRules()}, bookings)

	b, err := e.Book(context.Background(), BookingRequest{
		UserID:        "u1",
		Start:         nyTime(t, 2, 10, 0),
		End:           nyTime(t, 2, 10, 30),
		AttendeeEmail: "guest@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, testNow, b.CreatedAt)
	require.Len(t, bookings.inserted, 1)
}

func TestBookRequireApproval(t *testing.T) {
	e := newTestEngine(&fakeRules{rs: weekdayRules()}, &fakeBookings{})

	b, err := e.Book(context.Background(), BookingRequest{
		UserID:          "u1",
		Start:           nyTime(t, 2, 10, 0),
		End:             nyTime(t, 2, 10, 30),
		AttendeeEmail:   "guest@example.com",
		RequireApproval: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, b.Status)
}

func TestBookConflictWithExistingBooking(t *testing.T) {
	bookings := &fakeBookings{
		busy: []Window{{Start: nyTime(t, 2, 10, 0), End: nyTime(t, 2, 10, 30)}},
	}
	e := newTestEngine(&fakeRules{rs: weekdayRules()}, bookings)

	_, err := e.Book(context.Background(), BookingRequest{
		UserID:        "u1",
		Start:         nyTime(t, 2, 10, 15),
		End:           nyTime(t, 2, 10, 45),
		AttendeeEmail: "guest@example.com",
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, bookings.inserted, "no row may be written on conflict")
}

func TestBookConflictWithProviderBusy(t *testing.T) {
	provider := &fakeProvider{
		name: "external",
		busy: []Window{{Start: nyTime(t, 2, 14, 0), End: nyTime(t, 2, 15, 0)}},
	}
	e := newTestEngine(&fakeRules{rs: weekdayRules()}, &fakeBookings{}, provider)

	_, err := e.Book(context.Background(), BookingRequest{
		UserID:        "u1",
		Start:         nyTime(t, 2, 14, 30),
		End:           nyTime(t, 2, 15, 0),
		AttendeeEmail: "guest@example.com",
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestBookOutsideAvailability(t *testing.T) {
	e := newTestEngine(&fakeRules{rs: weekdayRules()}, &fakeBookings{})

	// Saturday has no rule
	_, err := e.Book(context.Background(), BookingRequest{
		UserID:        "u1",
		Start:         nyTime(t, 7, 10, 0),
		End:           nyTime(t, 7, 10, 30),
		AttendeeEmail: "guest@example.com",
	})
	assert.ErrorIs(t, err, ErrOutsideAvailability)

	// inverted window
	_, err = e.Book(context.Background(), BookingRequest{
		UserID: "u1",
		Start:  nyTime(t, 2, 11, 0),
		End:    nyTime(t, 2, 10, 0),
	})
	assert.ErrorIs(t, err, ErrOutsideAvailability)
}

func TestBookSetupRequired(t *testing.T) {
	e := newTestEngine(&fakeRules{rs: RuleSet{}}, &fakeBookings{})

	_, err := e.Book(context.Background(), BookingRequest{
		UserID: "u1",
		Start:  nyTime(t, 2, 10, 0),
		End:    nyTime(t, 2, 10, 30),
	})
	assert.ErrorIs(t, err, ErrSetupRequired)
}

func TestBookUnknownUser(t *testing.T) {
	e := newTestEngine(&fakeRules{err: ErrUserNotFound}, &fakeBookings{})

	_, err := e.Book(context.Background(), BookingRequest{
		UserID: "missing",
		Start:  nyTime(t, 2, 10, 0),
		End:    nyTime(t, 2, 10, 30),
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// Two simultaneous requests for the identical slot: exactly one wins. The
// fake store serializes Insert the way the real one serializes per user, so
// both may pass the engine's snapshot check but only one row lands.
func TestBookConcurrentIdenticalSlot(t *testing.T) {
	bookings := &fakeBookings{}
	e := newTestEngine(&fakeRules{rs: weekdayRules()}, bookings)

	req := BookingRequest{
		UserID:        "u1",
		Start:         nyTime(t, 2, 11, 0),
		End:           nyTime(t, 2, 11, 30),
		AttendeeEmail: "guest@example.com",
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.Book(context.Background(), req)
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range results {
		var conflict *ConflictError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, bookings.inserted, 1)
}
