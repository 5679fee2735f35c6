package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusConfirmed       Status = "confirmed"
	StatusCancelled       Status = "cancelled"
)

// BusyStatuses are the booking statuses that block a time range.
var BusyStatuses = []Status{StatusConfirmed, StatusPendingApproval}

// Booking is the durable reservation written once a slot is accepted.
type Booking struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Start         time.Time `json:"start_time"`
	End           time.Time `json:"end_time"`
	Status        Status    `json:"status"`
	AttendeeEmail string    `json:"attendee_email"`
	AttendeeName  string    `json:"attendee_name,omitempty"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	Source        string    `json:"source,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RuleStore loads a user's availability configuration.
// It returns ErrUserNotFound for an unknown user id.
type RuleStore interface {
	RuleSet(ctx context.Context, userID string) (RuleSet, error)
}

// BookingStore is the persistence port for bookings. Insert must be atomic
// with respect to concurrent inserts for the same user: it re-checks overlap
// under a per-user lock and relies on the store's overlap constraint as the
// final authority, returning *ConflictError when either trips.
type BookingStore interface {
	BusyWindows(ctx context.Context, userID string, from, to time.Time) ([]Window, error)
	Insert(ctx context.Context, b *Booking) error
}

// BusyProvider supplies busy intervals from one connected external calendar.
// A provider error never fails slot computation; the provider just
// contributes nothing for that request.
type BusyProvider interface {
	Name() string
	BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]Window, error)
}

// Defaults are applied to SlotRequest fields left at zero.
type Defaults struct {
	Duration    time.Duration
	Granularity time.Duration
	MinNotice   time.Duration
	HorizonDays int
	MaxSlots    int
}

// Options configures an Engine beyond its two required ports.
type Options struct {
	Providers       []BusyProvider
	Logger          *zap.Logger
	Now             func() time.Time
	ProviderTimeout time.Duration
	Defaults        Defaults
}

// Engine computes bookable slots and validates bookings. It holds no mutable
// state; every request works on its own snapshot of rules and busy intervals.
type Engine struct {
	rules           RuleStore
	bookings        BookingStore
	providers       []BusyProvider
	log             *zap.Logger
	now             func() time.Time
	providerTimeout time.Duration
	defaults        Defaults
}

func NewEngine(rules RuleStore, bookings BookingStore, opts Options) *Engine {
	e := &Engine{
		rules:           rules,
		bookings:        bookings,
		providers:       opts.Providers,
		log:             opts.Logger,
		now:             opts.Now,
		providerTimeout: opts.ProviderTimeout,
		defaults:        opts.Defaults,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.providerTimeout <= 0 {
		e.providerTimeout = 3 * time.Second
	}
	if e.defaults.Duration <= 0 {
		e.defaults.Duration = 30 * time.Minute
	}
	if e.defaults.Granularity <= 0 {
		e.defaults.Granularity = 30 * time.Minute
	}
	if e.defaults.HorizonDays <= 0 {
		e.defaults.HorizonDays = 14
	}
	if e.defaults.MaxSlots <= 0 {
		e.defaults.MaxSlots = 50
	}
	return e
}

// BookingRequest asks for one specific slot to be reserved.
type BookingRequest struct {
	UserID          string
	Start           time.Time
	End             time.Time
	AttendeeEmail   string
	AttendeeName    string
	Title           string
	Description     string
	Source          string
	RequireApproval bool
}

// Book validates the requested slot against live data and commits it.
//
// The browse-time slot list may be stale, so the acceptance decision is made
// here, at write time: candidate windows are re-resolved, busy intervals are
// re-aggregated over a range tightly bounding the slot, and only then is the
// row inserted. The store's Insert closes the remaining race between two
// concurrent requests that both pass this check.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	window := Window{Start: req.Start.UTC(), End: req.End.UTC()}
	if !window.IsValid() {
		return nil, ErrOutsideAvailability
	}

	rs, err := e.rules.RuleSet(ctx, req.UserID)
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

	candidates, err := rs.CandidateWindows(window.Start, loc)
	if err != nil {
		return nil, err
	}
	inside := false
	for _, c := range candidates {
		if c.Contains(window) {
			inside = true
			break
		}
	}
	if !inside {
		return nil, ErrOutsideAvailability
	}

	busy, err := e.busyIntervals(ctx, req.UserID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	for _, b := range busy {
		if window.Overlaps(b) {
			return nil, &ConflictError{Busy: b}
		}
	}

	status := StatusConfirmed
	if req.RequireApproval {
		status = StatusPendingApproval
	}
	booking := &Booking{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Start:         window.Start,
		End:           window.End,
		Status:        status,
		AttendeeEmail: req.AttendeeEmail,
		AttendeeName:  req.AttendeeName,
		Title:         req.Title,
		Description:   req.Description,
		Source:        req.Source,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.bookings.Insert(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}
