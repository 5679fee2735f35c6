package app

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type AvailabilityRule struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DateOverride is one override row. A date may carry several rows with
// explicit windows, or a single row with Available=false blanking the day.
type DateOverride struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Available bool      `json:"available"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CalendarConnection holds a stored OAuth token for one external calendar.
type CalendarConnection struct {
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	Token     []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
