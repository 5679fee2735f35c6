package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-service/internal/schedule"
)

// respondError maps core outcomes onto the REST surface. Nothing coming out
// of the engine should turn into a 500 except genuine store failures.
func (a *App) respondError(c *gin.Context, err error) {
	var conflict *schedule.ConflictError
	switch {
	case errors.Is(err, schedule.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, schedule.ErrSetupRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "availability not configured for this user"})
	case errors.Is(err, schedule.ErrOutsideAvailability):
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot not available"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": "this time was just taken, pick another"})
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// GET /api/users/:id/slots?duration=30&count=10&date=2026-09-01&tz_hint=Europe/Berlin
func (a *App) GetSlotsHandler(c *gin.Context) {
	userID := c.Param("id")
	ctx := c.Request.Context()

	req := schedule.SlotRequest{}
	if v := c.Query("duration"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
			return
		}
		req.Duration = time.Duration(mins) * time.Minute
	}
	if v := c.Query("count"); v != "" {
		count, err := strconv.Atoi(v)
		if err != nil || count <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count"})
			return
		}
		req.MaxSlots = count
	}
	if v := c.Query("date"); v != "" {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		// the engine anchors the date in the user's own timezone
		req.FromDate = v
	}
	// best effort: an unknown zone falls back to the user's own
	req.LabelZone = c.Query("tz_hint")

	cacheKey := fmt.Sprintf("%s|%d|%d|%s|%s", userID, req.Duration, req.MaxSlots, req.FromDate, req.LabelZone)
	if slots, ok := a.Cache.Get(ctx, userID, cacheKey); ok {
		c.JSON(http.StatusOK, gin.H{"slots": slots})
		return
	}

	slots, err := a.Engine.AvailableSlots(ctx, userID, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.Cache.Put(ctx, userID, cacheKey, slots)

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type createBookingReq struct {
	StartTime       string `json:"start_time" binding:"required"`
	EndTime         string `json:"end_time" binding:"required"`
	AttendeeEmail   string `json:"attendee_email" binding:"required,email"`
	AttendeeName    string `json:"attendee_name"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Source          string `json:"source"`
	RequireApproval bool   `json:"require_approval"`
}

// POST /api/users/:id/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	userID := c.Param("id")
	var req createBookingReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// RFC3339 carries an explicit offset; naive timestamps are rejected here
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time, expected ISO-8601 with offset"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_time, expected ISO-8601 with offset"})
		return
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be before end_time"})
		return
	}

	ctx := c.Request.Context()
	booking, err := a.Engine.Book(ctx, schedule.BookingRequest{
		UserID:          userID,
		Start:           start,
		End:             end,
		AttendeeEmail:   req.AttendeeEmail,
		AttendeeName:    req.AttendeeName,
		Title:           req.Title,
		Description:     req.Description,
		Source:          req.Source,
		RequireApproval: req.RequireApproval,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.Cache.Invalidate(ctx, userID)
	a.Mailer.SendConfirmationAsync(booking)

	c.JSON(http.StatusCreated, booking)
}

// GET /api/users/:id/bookings?from=ISO&to=ISO
func (a *App) ListBookingsHandler(c *gin.Context) {
	userID := c.Param("id")
	fromStr := c.Query("from")
	toStr := c.Query("to")

	var (
		from, to time.Time
		err      error
	)
	ranged := fromStr != "" && toStr != ""
	if ranged {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
			return
		}
	}

	bookings, err := a.Store.ListBookings(c.Request.Context(), userID, from.UTC(), to.UTC(), ranged)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// DELETE /api/bookings/:id
func (a *App) CancelBookingHandler(c *gin.Context) {
	ctx := c.Request.Context()
	booking, err := a.Store.CancelBooking(ctx, c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.Cache.Invalidate(ctx, booking.UserID)

	c.JSON(http.StatusOK, booking)
}
