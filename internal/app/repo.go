package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-service/internal/schedule"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrRuleNotFound     = errors.New("availability rule not found")
)

// Store implements the engine's persistence ports on top of pgx, plus the
// settings CRUD queries used by the handlers.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	q := `INSERT INTO users (id, email, full_name, timezone, created_at)
	      VALUES ($1, $2, $3, $4, now())
	      RETURNING created_at`
	return s.db.QueryRow(ctx, q, u.ID, u.Email, u.FullName, u.Timezone).Scan(&u.CreatedAt)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	q := `SELECT id, email, full_name, timezone, created_at FROM users WHERE id=$1`
	var u User
	err := s.db.QueryRow(ctx, q, userID).Scan(&u.ID, &u.Email, &u.FullName, &u.Timezone, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, schedule.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RuleSet loads everything the resolver needs for one user in one shot:
// timezone, weekly rules and date overrides.
func (s *Store) RuleSet(ctx context.Context, userID string) (schedule.RuleSet, error) {
	var rs schedule.RuleSet

	err := s.db.QueryRow(ctx, `SELECT timezone FROM users WHERE id=$1`, userID).Scan(&rs.Timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return rs, schedule.ErrUserNotFound
	}
	if err != nil {
		return rs, err
	}

	rules, err := s.ListAvailabilityRules(ctx, userID)
	if err != nil {
		return rs, err
	}
	for _, r := range rules {
		rs.Rules = append(rs.Rules, schedule.WeeklyRule{
			Weekday: time.Weekday(r.DayOfWeek),
			Start:   r.StartTime,
			End:     r.EndTime,
		})
	}

	overrides, err := s.ListDateOverrides(ctx, userID)
	if err != nil {
		return rs, err
	}
	// rows for the same date collapse into one override
	byDate := map[string]int{}
	for _, row := range overrides {
		idx, seen := byDate[row.Date]
		if !seen {
			rs.Overrides = append(rs.Overrides, schedule.DateOverride{Date: row.Date})
			idx = len(rs.Overrides) - 1
			byDate[row.Date] = idx
		}
		if !row.Available {
			rs.Overrides[idx].Unavailable = true
			continue
		}
		rs.Overrides[idx].Windows = append(rs.Overrides[idx].Windows, schedule.OverrideWindow{
			Start: row.StartTime,
			End:   row.EndTime,
		})
	}

	return rs, nil
}

// BusyWindows returns the time ranges blocked by confirmed or
// pending-approval bookings intersecting [from, to).
func (s *Store) BusyWindows(ctx context.Context, userID string, from, to time.Time) ([]schedule.Window, error) {
	q := `SELECT start_at_utc, end_at_utc FROM bookings
	      WHERE user_id=$1 AND status = ANY($2)
	        AND start_at_utc < $4 AND end_at_utc > $3`
	rows, err := s.db.Query(ctx, q, userID, busyStatusList(), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Window
	for rows.Next() {
		var w schedule.Window
		if err := rows.Scan(&w.Start, &w.End); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Insert writes a validated booking. The advisory lock serializes
// validate+insert per user so concurrent requests for the same slot resolve
// to exactly one 201; the bookings_no_overlap exclusion constraint remains
// the final authority if anything slips past.
func (s *Store) Insert(ctx context.Context, b *schedule.Booking) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, b.UserID); err != nil {
		return err
	}

	checkQ := `SELECT start_at_utc, end_at_utc FROM bookings
	           WHERE user_id=$1 AND status = ANY($2)
	             AND start_at_utc < $4 AND end_at_utc > $3
	           LIMIT 1`
	var busy schedule.Window
	err = tx.QueryRow(ctx, checkQ, b.UserID, busyStatusList(), b.Start, b.End).Scan(&busy.Start, &busy.End)
	if err == nil {
		return &schedule.ConflictError{Busy: busy}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	insertQ := `INSERT INTO bookings
	    (id, user_id, start_at_utc, end_at_utc, status, attendee_email, attendee_name, title, description, source, created_at)
	    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = tx.Exec(ctx, insertQ,
		b.ID, b.UserID, b.Start, b.End, b.Status,
		b.AttendeeEmail, b.AttendeeName, b.Title, b.Description, b.Source, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "bookings_no_overlap" {
			return &schedule.ConflictError{Busy: schedule.Window{Start: b.Start, End: b.End}}
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) ListBookings(ctx context.Context, userID string, from, to time.Time, ranged bool) ([]schedule.Booking, error) {
	base := `SELECT id, user_id, start_at_utc, end_at_utc, status,
	                attendee_email, attendee_name, title, description, source, created_at
	         FROM bookings WHERE user_id=$1`
	var (
		rows pgx.Rows
		err  error
	)
	if ranged {
		rows, err = s.db.Query(ctx, base+` AND start_at_utc >= $2 AND start_at_utc < $3 ORDER BY start_at_utc`, userID, from, to)
	} else {
		rows, err = s.db.Query(ctx, base+` ORDER BY start_at_utc`, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Booking
	for rows.Next() {
		var b schedule.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.Start, &b.End, &b.Status,
			&b.AttendeeEmail, &b.AttendeeName, &b.Title, &b.Description, &b.Source, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CancelBooking transitions a pending or confirmed booking to cancelled. A
// cancelled booking stops counting as busy immediately.
func (s *Store) CancelBooking(ctx context.Context, bookingID string) (*schedule.Booking, error) {
	q := `UPDATE bookings SET status=$2 WHERE id=$1 AND status != $2
	      RETURNING id, user_id, start_at_utc, end_at_utc, status,
	                attendee_email, attendee_name, title, description, source, created_at`
	var b schedule.Booking
	err := s.db.QueryRow(ctx, q, bookingID, schedule.StatusCancelled).Scan(
		&b.ID, &b.UserID, &b.Start, &b.End, &b.Status,
		&b.AttendeeEmail, &b.AttendeeName, &b.Title, &b.Description, &b.Source, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// either unknown or already cancelled; one more lookup tells them apart
		var status string
		err := s.db.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, bookingID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCancelled
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) InsertAvailabilityRule(ctx context.Context, r *AvailabilityRule) error {
	now := time.Now().UTC()
	q := `INSERT INTO availability_rules
	      (user_id, day_of_week, start_time, end_time, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$5) RETURNING id`
	err := s.db.QueryRow(ctx, q, r.UserID, r.DayOfWeek, r.StartTime, r.EndTime, now).Scan(&r.ID)
	if err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (s *Store) UpdateAvailabilityRule(ctx context.Context, r *AvailabilityRule) error {
	now := time.Now().UTC()
	q := `UPDATE availability_rules
	      SET day_of_week=$1, start_time=$2, end_time=$3, updated_at=$4
	      WHERE id=$5 AND user_id=$6 RETURNING id`
	var id int
	err := s.db.QueryRow(ctx, q, r.DayOfWeek, r.StartTime, r.EndTime, now, r.ID, r.UserID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("availability rule %d: %w", r.ID, ErrRuleNotFound)
	}
	if err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

func (s *Store) DeleteAvailabilityRule(ctx context.Context, userID string, ruleID int) (bool, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM availability_rules WHERE id=$1 AND user_id=$2`, ruleID, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) ListAvailabilityRules(ctx context.Context, userID string) ([]AvailabilityRule, error) {
	q := `SELECT id, user_id, day_of_week, start_time::text, end_time::text, created_at, updated_at
	      FROM availability_rules WHERE user_id=$1 ORDER BY day_of_week, start_time`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AvailabilityRule
	for rows.Next() {
		var r AvailabilityRule
		if err := rows.Scan(&r.ID, &r.UserID, &r.DayOfWeek, &r.StartTime, &r.EndTime,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertDateOverride(ctx context.Context, o *DateOverride) error {
	q := `INSERT INTO date_overrides
	      (user_id, override_date, available, start_time, end_time, created_at)
	      VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),now())
	      RETURNING id, created_at`
	return s.db.QueryRow(ctx, q, o.UserID, o.Date, o.Available, o.StartTime, o.EndTime).
		Scan(&o.ID, &o.CreatedAt)
}

func (s *Store) ListDateOverrides(ctx context.Context, userID string) ([]DateOverride, error) {
	q := `SELECT id, user_id, override_date::text, available,
	             COALESCE(start_time::text, ''), COALESCE(end_time::text, ''), created_at
	      FROM date_overrides WHERE user_id=$1 ORDER BY override_date, start_time`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DateOverride
	for rows.Next() {
		var o DateOverride
		if err := rows.Scan(&o.ID, &o.UserID, &o.Date, &o.Available,
			&o.StartTime, &o.EndTime, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDateOverride(ctx context.Context, userID string, overrideID int) (bool, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM date_overrides WHERE id=$1 AND user_id=$2`, overrideID, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) SaveCalendarToken(ctx context.Context, userID, provider string, token []byte) error {
	q := `INSERT INTO calendar_connections (user_id, provider, token, created_at)
	      VALUES ($1,$2,$3,now())
	      ON CONFLICT (user_id, provider) DO UPDATE SET token=EXCLUDED.token`
	_, err := s.db.Exec(ctx, q, userID, provider, token)
	return err
}

func (s *Store) CalendarToken(ctx context.Context, userID, provider string) ([]byte, error) {
	var token []byte
	err := s.db.QueryRow(ctx,
		`SELECT token FROM calendar_connections WHERE user_id=$1 AND provider=$2`,
		userID, provider).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

func busyStatusList() []string {
	out := make([]string, len(schedule.BusyStatuses))
	for i, s := range schedule.BusyStatuses {
		out[i] = string(s)
	}
	return out
}
