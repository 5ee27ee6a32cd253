package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	PGDSN         string `envconfig:"PG_DSN" required:"true"`
	PGMaxConns    int32  `envconfig:"PG_MAX_CONNS" default:"10"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string `envconfig:"SESSION_SECRET" required:"true"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	CSRFSecret string        `envconfig:"CSRF_SECRET" required:"true"`

	// AdminSecretKey grants the admin role at registration.
	AdminSecretKey string `envconfig:"ADMIN_SECRET_KEY" required:"true"`

	LowStockThreshold int           `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
	ReportCacheTTL    time.Duration `envconfig:"REPORT_CACHE_TTL" default:"5m"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MIN" default:"120"`

	GotenbergURL string `envconfig:"GOTENBERG_URL"`
}

// LoadConfig reads configuration from environment variables, after loading a
// .env file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case strings.TrimSpace(c.PGDSN) == "":
		return errors.New("database dsn must be provided")
	case strings.TrimSpace(c.SessionSecret) == "":
		return errors.New("session secret must be provided")
	case strings.TrimSpace(c.CSRFSecret) == "":
		return errors.New("csrf secret must be provided")
	case strings.TrimSpace(c.AdminSecretKey) == "":
		return errors.New("admin secret key must be provided")
	case c.LowStockThreshold < 0:
		return errors.New("low stock threshold cannot be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
