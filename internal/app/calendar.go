package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"booking-service/internal/config"
	"booking-service/internal/schedule"
)

const googleProviderName = "google_calendar"

// GoogleCalendar is the Google-backed busy-interval provider. Tokens obtained
// through the OAuth flow are persisted per user; a user without a stored
// token simply contributes no busy intervals.
type GoogleCalendar struct {
	oauth *oauth2.Config
	store *Store
	log   *zap.Logger
}

// NewGoogleCalendar returns nil when the OAuth client is not configured,
// which disables the provider without special-casing elsewhere.
func NewGoogleCalendar(cfg *config.Config, store *Store, log *zap.Logger) *GoogleCalendar {
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" || cfg.Google.RedirectURL == "" {
		return nil
	}
	return &GoogleCalendar{
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		store: store,
		log:   log,
	}
}

func (g *GoogleCalendar) Name() string { return googleProviderName }

// BusyIntervals queries the free/busy endpoint for the user's primary
// calendar. Errors bubble up to the aggregator, which treats this provider
// as empty for the request.
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]schedule.Window, error) {
	tokenJSON, err := g.store.CalendarToken(ctx, userID, googleProviderName)
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, nil
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithTokenSource(g.oauth.TokenSource(ctx, &token)))
	if err != nil {
		return nil, err
	}

	resp, err := srv.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	var out []schedule.Window
	for _, cal := range resp.Calendars {
		for _, p := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, p.Start)
			end, err2 := time.Parse(time.RFC3339, p.End)
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, schedule.Window{Start: start.UTC(), End: end.UTC()})
		}
	}
	return out, nil
}

// GET /api/calendar/auth?user_id=...
func (a *App) GoogleAuthHandler(c *gin.Context) {
	gcal := a.googleOrAbort(c)
	if gcal == nil {
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if _, err := a.Store.GetUser(c.Request.Context(), userID); err != nil {
		a.respondError(c, err)
		return
	}

	url := gcal.oauth.AuthCodeURL(userID, oauth2.AccessTypeOffline)
	c.JSON(http.StatusOK, gin.H{"auth_url": url})
}

// GET /oauth2callback, registered before the auth middleware because Google
// redirects the browser here directly.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	gcal := a.googleOrAbort(c)
	if gcal == nil {
		return
	}

	code := c.Query("code")
	userID := c.Query("state")
	if code == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code and state required"})
		return
	}

	ctx := c.Request.Context()
	token, err := gcal.oauth.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.Store.SaveCalendarToken(ctx, userID, googleProviderName, tokenJSON); err != nil {
		a.respondError(c, err)
		return
	}

	a.Log.Info("google calendar connected", zap.String("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"message": "calendar connected"})
}

func (a *App) googleOrAbort(c *gin.Context) *GoogleCalendar {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google calendar not configured"})
		return nil
	}
	return a.Google
}
