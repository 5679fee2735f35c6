package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"booking-service/internal/schedule"
)

type createUserReq struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Timezone string `json:"timezone" binding:"required"`
}

// POST /api/users
func (a *App) CreateUserHandler(c *gin.Context) {
	var req createUserReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timezone"})
		return
	}

	user := &User{
		ID:       uuid.NewString(),
		Email:    req.Email,
		FullName: req.FullName,
		Timezone: req.Timezone,
	}
	if err := a.Store.CreateUser(c.Request.Context(), user); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GET /api/users/:id
func (a *App) GetUserHandler(c *gin.Context) {
	user, err := a.Store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// POST /api/users/:id/availability
// Accepts a list of weekly rules. Several rules may share a weekday (split
// shifts); cross-midnight windows are rejected here so the resolver never
// sees one.
func (a *App) SetAvailabilityHandler(c *gin.Context) {
	userID := c.Param("id")
	var payload []AvailabilityRule
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	if _, err := a.Store.GetUser(ctx, userID); err != nil {
		a.respondError(c, err)
		return
	}

	for i := range payload {
		if payload[i].DayOfWeek < 0 || payload[i].DayOfWeek > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day_of_week must be 0-6"})
			return
		}
		if err := schedule.ValidateClockWindow(payload[i].StartTime, payload[i].EndTime); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var saved []AvailabilityRule
	for i := range payload {
		payload[i].UserID = userID
		if err := a.Store.InsertAvailabilityRule(ctx, &payload[i]); err != nil {
			a.respondError(c, err)
			return
		}
		saved = append(saved, payload[i])
	}
	c.JSON(http.StatusCreated, saved)
}

// PUT /api/users/:id/availability/:rule_id
func (a *App) UpdateAvailabilityHandler(c *gin.Context) {
	userID := c.Param("id")
	ruleID, err := strconv.Atoi(c.Param("rule_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var payload AvailabilityRule
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.DayOfWeek < 0 || payload.DayOfWeek > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day_of_week must be 0-6"})
		return
	}
	if err := schedule.ValidateClockWindow(payload.StartTime, payload.EndTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload.ID = ruleID
	payload.UserID = userID
	if err := a.Store.UpdateAvailabilityRule(c.Request.Context(), &payload); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// GET /api/users/:id/availability
func (a *App) ListAvailabilityHandler(c *gin.Context) {
	rules, err := a.Store.ListAvailabilityRules(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// DELETE /api/users/:id/availability/:rule_id
func (a *App) DeleteAvailabilityHandler(c *gin.Context) {
	ruleID, err := strconv.Atoi(c.Param("rule_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	found, err := a.Store.DeleteAvailabilityRule(c.Request.Context(), c.Param("id"), ruleID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "availability rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createOverrideReq struct {
	Date      string `json:"date" binding:"required"`
	Available bool   `json:"available"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// POST /api/users/:id/overrides
// An override with available=false blanks the whole date; with available=true
// it contributes one explicit window, and overrides for a date replace the
// weekly rules entirely.
func (a *App) CreateOverrideHandler(c *gin.Context) {
	userID := c.Param("id")
	var req createOverrideReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	if req.Available {
		if err := schedule.ValidateClockWindow(req.StartTime, req.EndTime); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := a.Store.GetUser(ctx, userID); err != nil {
		a.respondError(c, err)
		return
	}

	override := &DateOverride{
		UserID:    userID,
		Date:      req.Date,
		Available: req.Available,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if !req.Available {
		override.StartTime = ""
		override.EndTime = ""
	}
	if err := a.Store.InsertDateOverride(ctx, override); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, override)
}

// GET /api/users/:id/overrides
func (a *App) ListOverridesHandler(c *gin.Context) {
	overrides, err := a.Store.ListDateOverrides(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overrides)
}

// DELETE /api/users/:id/overrides/:override_id
func (a *App) DeleteOverrideHandler(c *gin.Context) {
	overrideID, err := strconv.Atoi(c.Param("override_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid override id"})
		return
	}
	found, err := a.Store.DeleteDateOverride(c.Request.Context(), c.Param("id"), overrideID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "override not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
