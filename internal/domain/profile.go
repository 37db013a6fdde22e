package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnknownUser          = errors.New("unknown user")
)

// Profile holds per-user tunables consumed by the predictor.
type Profile struct {
	UserKey  int64 // Telegram user id
	ChatID   int64 // chat used for reminders
	Username string
	FullName string

	ReductionCoefficient decimal.Decimal // (0, 1], two decimal places
	InitialIntervalHours float64
	MinIntervalHours     float64
	MaxIntervalHours     float64

	TargetQuitDate *time.Time // calendar date, nullable
	QuitDateCapped bool       // TargetQuitDate is the horizon, not a real projection

	RemindersEnabled bool
	NextReminderAt   *time.Time // UTC, nullable
	CreatedAt        time.Time  // UTC
}

// ProfileDefaults are applied to a profile on first interaction.
type ProfileDefaults struct {
	ReductionCoefficient decimal.Decimal
	InitialIntervalHours float64
	MinIntervalHours     float64
	MaxIntervalHours     float64
}

func DefaultProfileDefaults() ProfileDefaults {
	return ProfileDefaults{
		ReductionCoefficient: decimal.RequireFromString("0.95"),
		InitialIntervalHours: 2.0,
		MinIntervalHours:     0.5,
		MaxIntervalHours:     24.0,
	}
}

// Validate checks the coefficient and interval bounds.
func (d ProfileDefaults) Validate() error {
	if _, err := NormalizeCoefficient(d.ReductionCoefficient); err != nil {
		return err
	}
	return ValidateIntervals(d.InitialIntervalHours, d.MinIntervalHours, d.MaxIntervalHours)
}

// NewProfile builds a fresh profile for userKey with these defaults.
func (d ProfileDefaults) NewProfile(userKey int64, now time.Time) *Profile {
	return &Profile{
		UserKey:              userKey,
		ChatID:               userKey,
		ReductionCoefficient: d.ReductionCoefficient,
		InitialIntervalHours: d.InitialIntervalHours,
		MinIntervalHours:     d.MinIntervalHours,
		MaxIntervalHours:     d.MaxIntervalHours,
		RemindersEnabled:     true,
		CreatedAt:            now.UTC(),
	}
}

// NormalizeCoefficient rounds c to two places and checks 0 < c <= 1.
// Values above 1 would shrink the interval on every event, so they are rejected.
func NormalizeCoefficient(c decimal.Decimal) (decimal.Decimal, error) {
	c = c.Round(2)
	if !c.IsPositive() {
		return c, fmt.Errorf("%w: reduction coefficient %s must be greater than 0", ErrInvalidConfiguration, c)
	}
	if c.GreaterThan(decimal.NewFromInt(1)) {
		return c, fmt.Errorf("%w: reduction coefficient %s must not exceed 1", ErrInvalidConfiguration, c)
	}
	return c, nil
}

// MaxIntervalLimitHours bounds every configured interval so that it always
// converts to a time.Duration.
const MaxIntervalLimitHours = 24 * 365

// ValidateIntervals checks that all values are finite, initial > 0,
// 0 < min <= max and nothing exceeds MaxIntervalLimitHours.
func ValidateIntervals(initial, minH, maxH float64) error {
	for _, v := range []float64{initial, minH, maxH} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: interval must be a finite number", ErrInvalidConfiguration)
		}
		if v > MaxIntervalLimitHours {
			return fmt.Errorf("%w: interval %.2fh exceeds %dh", ErrInvalidConfiguration, v, MaxIntervalLimitHours)
		}
	}
	if initial <= 0 {
		return fmt.Errorf("%w: initial interval must be positive", ErrInvalidConfiguration)
	}
	if minH <= 0 {
		return fmt.Errorf("%w: min interval must be positive", ErrInvalidConfiguration)
	}
	if minH > maxH {
		return fmt.Errorf("%w: min interval %.2fh exceeds max %.2fh", ErrInvalidConfiguration, minH, maxH)
	}
	return nil
}
