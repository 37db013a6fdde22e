package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/ykvlv/smoke-bot/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken    string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath      string `envconfig:"DB_PATH" default:"./data/smoke.db"`
	ReferenceTZ string `envconfig:"REFERENCE_TZ" default:"Europe/Moscow"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`   // debug|info|warn|error
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`  // json|console
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"` // /healthz and /metrics

	ReductionCoefficient decimal.Decimal `envconfig:"DEFAULT_REDUCTION_COEFFICIENT" default:"0.95"`
	InitialIntervalHours float64         `envconfig:"DEFAULT_INITIAL_INTERVAL_HOURS" default:"2.0"`
	MinIntervalHours     float64         `envconfig:"DEFAULT_MIN_INTERVAL_HOURS" default:"0.5"`
	MaxIntervalHours     float64         `envconfig:"DEFAULT_MAX_INTERVAL_HOURS" default:"24.0"`

	ReminderHours string        `envconfig:"REMINDER_HOURS" default:"08:00-23:00"` // equal bounds: any time
	ReminderPoll  time.Duration `envconfig:"REMINDER_POLL" default:"30s"`
}

// Load reads an optional .env file, then environment variables into Config,
// and validates the result.
func Load() (Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.ReminderWindow(); err != nil {
		return err
	}
	return c.ProfileDefaults().Validate()
}

// Location resolves the reference timezone.
func (c Config) Location() (*time.Location, error) {
	return domain.LoadZone(c.ReferenceTZ)
}

// ProfileDefaults are applied to newly created profiles.
func (c Config) ProfileDefaults() domain.ProfileDefaults {
	return domain.ProfileDefaults{
		ReductionCoefficient: c.ReductionCoefficient,
		InitialIntervalHours: c.InitialIntervalHours,
		MinIntervalHours:     c.MinIntervalHours,
		MaxIntervalHours:     c.MaxIntervalHours,
	}
}

// ReminderWindow parses REMINDER_HOURS in the reference timezone.
func (c Config) ReminderWindow() (domain.ActiveWindow, error) {
	loc, err := c.Location()
	if err != nil {
		return domain.ActiveWindow{}, err
	}
	fromM, toM, err := domain.ParseActiveWindow(c.ReminderHours)
	if err != nil {
		return domain.ActiveWindow{}, fmt.Errorf("%w: REMINDER_HOURS: %v", domain.ErrInvalidConfiguration, err)
	}
	return domain.ActiveWindow{FromM: fromM, ToM: toM, Loc: loc}, nil
}
