package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `env:"MODE" envDefault:"offline"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	SiteID   string `env:"SITE_ID" envDefault:"local"`
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN"`

	AuthHMACSecret  string `env:"AUTH_HMAC_SECRET" envDefault:"supersecret-dev-key"`
	EnableLocalAuth bool   `env:"ENABLE_LOCAL_AUTH" envDefault:"true"`
	EnableGuestAuth bool   `env:"ENABLE_GUEST_AUTH" envDefault:"false"`

	RedisURL     string        `env:"REDIS_URL"`
	QuizCacheTTL time.Duration `env:"QUIZ_CACHE_TTL" envDefault:"1m"`

	AMQPURL string `env:"AMQP_URL"`

	// LTI AGS gradebook; disabled unless the line items URL is set.
	AGSLineItemsURL  string        `env:"AGS_LINEITEMS_URL"`
	AGSTokenURL      string        `env:"AGS_TOKEN_URL"`
	AGSClientID      string        `env:"AGS_CLIENT_ID"`
	AGSClientSecret  string        `env:"AGS_CLIENT_SECRET"`
	AGSAuthoritative bool          `env:"AGS_AUTHORITATIVE" envDefault:"false"`
	AGSTimeout       time.Duration `env:"AGS_TIMEOUT" envDefault:"5s"`

	BreakerMaxRequests      uint32        `env:"BREAKER_MAX_REQUESTS" envDefault:"1"`
	BreakerInterval         time.Duration `env:"BREAKER_INTERVAL" envDefault:"1m"`
	BreakerTimeout          time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureThreshold uint32        `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	CORSOriginsOnline  []string `env:"CORS_ORIGINS_ONLINE" envSeparator:"," envDefault:"https://lms.mindengage.ai"`
	CORSOriginsOffline []string `env:"CORS_ORIGINS_OFFLINE" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3010,http://localhost:3020"`
}

// FromEnv loads .env (if present) and parses the environment.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Mode {
	case ModeOffline, ModeOnline:
	default:
		return Config{}, fmt.Errorf("MODE must be %q or %q, got %q", ModeOffline, ModeOnline, cfg.Mode)
	}
	if cfg.AGSLineItemsURL != "" && cfg.AGSTokenURL == "" {
		return Config{}, fmt.Errorf("AGS_TOKEN_URL is required when AGS_LINEITEMS_URL is set")
	}
	return cfg, nil
}

func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
