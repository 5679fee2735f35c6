package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"8080"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		URL            string `env:"URL,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
	} `envPrefix:"DATABASE_"`
	Auth struct {
		JWTSecret    string `env:"JWT_HMAC_SECRET"`
		StaticTokens string `env:"STATIC_TOKENS"`
	} `envPrefix:"AUTH_"`
	Google struct {
		ClientID     string `env:"CLIENT_ID"`
		ClientSecret string `env:"CLIENT_SECRET"`
		RedirectURL  string `env:"REDIRECT_URL"`
	} `envPrefix:"GOOGLE_"`
	Slots struct {
		DefaultDurationMins int `env:"DEFAULT_DURATION_MINUTES" envDefault:"30"`
		GranularityMins     int `env:"GRANULARITY_MINUTES" envDefault:"30"`
		MinNoticeMins       int `env:"MIN_NOTICE_MINUTES" envDefault:"60"`
		HorizonDays         int `env:"HORIZON_DAYS" envDefault:"14"`
		MaxSlots            int `env:"MAX_SLOTS" envDefault:"50"`
		ProviderTimeoutSecs int `env:"PROVIDER_TIMEOUT" envDefault:"3"`
	} `envPrefix:"SLOTS_"`
	Redis struct {
		Addr         string `env:"ADDR"`
		Password     string `env:"PASSWORD"`
		DB           int    `env:"DB" envDefault:"0"`
		CacheTTLSecs int    `env:"CACHE_TTL" envDefault:"30"`
	} `envPrefix:"REDIS_"`
	SMTP struct {
		Host        string `env:"HOST"`
		Port        int    `env:"PORT" envDefault:"465"`
		Username    string `env:"USERNAME"`
		Password    string `env:"PASSWORD"`
		From        string `env:"FROM"`
		DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SMTP_"`
}

// Load reads configuration from the environment, after merging in an optional
// .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if errors.As(err, &aggErr) {
			// the first error alone keeps startup logs readable
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}
	return cfg, nil
}
