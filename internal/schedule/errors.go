package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserNotFound is returned when the user id does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSetupRequired is returned when the user has no timezone or no
	// availability configured. It is a setup condition, not a server fault.
	ErrSetupRequired = errors.New("availability not configured")

	// ErrOutsideAvailability is returned when a requested booking window does
	// not fall inside any candidate availability window for that day.
	ErrOutsideAvailability = errors.New("requested time is outside availability")
)

// ConflictError is returned when a requested booking overlaps a busy interval
// at commit time. It carries the interval that caused the rejection.
type ConflictError struct {
	Busy Window
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requested time conflicts with busy interval %s - %s",
		e.Busy.Start.Format(time.RFC3339), e.Busy.End.Format(time.RFC3339))
}
