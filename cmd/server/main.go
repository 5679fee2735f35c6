package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"booking-service/internal/app"
	"booking-service/internal/config"
	"booking-service/internal/schedule"
	"booking-service/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.Database.MigrationsPath)
	if err != nil {
		logger.Fatal("failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	store := app.NewStore(pool)

	var cache *app.SlotCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = app.NewSlotCache(rdb, time.Duration(cfg.Redis.CacheTTLSecs)*time.Second, logger)
	}

	var providers []schedule.BusyProvider
	googleCal := app.NewGoogleCalendar(cfg, store, logger)
	if googleCal != nil {
		providers = append(providers, googleCal)
		logger.Info("google calendar provider enabled")
	}

	engine := schedule.NewEngine(store, store, schedule.Options{
		Providers:       providers,
		Logger:          logger,
		ProviderTimeout: time.Duration(cfg.Slots.ProviderTimeoutSecs) * time.Second,
		Defaults: schedule.Defaults{
			Duration:    time.Duration(cfg.Slots.DefaultDurationMins) * time.Minute,
			Granularity: time.Duration(cfg.Slots.GranularityMins) * time.Minute,
			MinNotice:   time.Duration(cfg.Slots.MinNoticeMins) * time.Minute,
			HorizonDays: cfg.Slots.HorizonDays,
			MaxSlots:    cfg.Slots.MaxSlots,
		},
	})

	application := &app.App{
		Cfg:    cfg,
		Log:    logger,
		Store:  store,
		Engine: engine,
		Cache:  cache,
		Mailer: app.NewMailer(cfg, logger),
		Google: googleCal,
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", application.GoogleOAuth2CallbackHandler)

	router.Use(app.AuthMiddleware(cfg))

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("", application.CreateUserHandler)
			users.GET("/:id", application.GetUserHandler)
			users.POST("/:id/availability", application.SetAvailabilityHandler)
			users.PUT("/:id/availability/:rule_id", application.UpdateAvailabilityHandler)
			users.DELETE("/:id/availability/:rule_id", application.DeleteAvailabilityHandler)
			users.GET("/:id/availability", application.ListAvailabilityHandler)
			users.POST("/:id/overrides", application.CreateOverrideHandler)
			users.GET("/:id/overrides", application.ListOverridesHandler)
			users.DELETE("/:id/overrides/:override_id", application.DeleteOverrideHandler)
			users.GET("/:id/slots", application.GetSlotsHandler)
			users.POST("/:id/bookings", application.CreateBookingHandler)
			users.GET("/:id/bookings", application.ListBookingsHandler)
		}
		api.DELETE("/bookings/:id", application.CancelBookingHandler)
		api.GET("/calendar/auth", application.GoogleAuthHandler)
	}

	if err := server.Run(router, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
