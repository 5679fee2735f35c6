package app

import (
	"go.uber.org/zap"

	"booking-service/internal/config"
	"booking-service/internal/schedule"
)

// App carries the wired collaborators the gin handlers work against.
// Cache and Mailer are optional; nil disables them.
type App struct {
	Cfg    *config.Config
	Log    *zap.Logger
	Store  *Store
	Engine *schedule.Engine
	Cache  *SlotCache
	Mailer *Mailer
	Google *GoogleCalendar
}
