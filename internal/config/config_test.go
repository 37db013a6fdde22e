package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/smoke-bot/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Moscow", cfg.ReferenceTZ)
	assert.Equal(t, 30*time.Second, cfg.ReminderPoll)

	d := cfg.ProfileDefaults()
	assert.Equal(t, "0.95", d.ReductionCoefficient.String())
	assert.Equal(t, 2.0, d.InitialIntervalHours)
	assert.Equal(t, 0.5, d.MinIntervalHours)
	assert.Equal(t, 24.0, d.MaxIntervalHours)

	w, err := cfg.ReminderWindow()
	require.NoError(t, err)
	assert.Equal(t, 8*60, w.FromM)
	assert.Equal(t, 23*60, w.ToM)
	assert.Equal(t, "Europe/Moscow", w.Loc.String())
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DEFAULT_MIN_INTERVAL_HOURS", "30")

	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLoad_RejectsNonFiniteIntervalDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DEFAULT_INITIAL_INTERVAL_HOURS", "NaN")
	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	t.Setenv("DEFAULT_INITIAL_INTERVAL_HOURS", "2")
	t.Setenv("DEFAULT_MAX_INTERVAL_HOURS", "1e300")
	_, err = Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLoad_RejectsCoefficientAboveOne(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DEFAULT_REDUCTION_COEFFICIENT", "1.5")

	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLoad_RejectsBadZoneAndWindow(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("REFERENCE_TZ", "Mars/Olympus")
	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	t.Setenv("REFERENCE_TZ", "UTC")
	t.Setenv("REMINDER_HOURS", "late")
	_, err = Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
