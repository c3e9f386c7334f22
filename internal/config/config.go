package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	DBPath         string        `env:"DB_PATH" envDefault:"motiveme.db"`
	BaseURL        string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	Timezone       string        `env:"TIMEZONE" envDefault:"Local"`
	PostmarkToken  string        `env:"POSTMARK_TOKEN"`
	FromEmail      string        `env:"FROM_EMAIL" envDefault:"noreply@motiveme.app"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	ReminderTime   string        `env:"REMINDER_TIME" envDefault:"20:00"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`
	SecureCookies  bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

const prefix = "MOTIVEME_"

// Load reads an optional .env file from the working directory, then parses
// MOTIVEME_-prefixed environment variables over the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: prefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone, which is the fallback zone for new challenges
// when a request carries none.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ReminderClock splits ReminderTime into hour and minute.
func (c Config) ReminderClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.ReminderTime)
	if err != nil {
		return 0, 0, fmt.Errorf("parse reminder time %q: %w", c.ReminderTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

func (c Config) validate() error {
	if c.SweepInterval < time.Minute {
		return fmt.Errorf("sweep interval %s is below 1m", c.SweepInterval)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if _, _, err := c.ReminderClock(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
