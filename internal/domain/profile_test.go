package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfileDefaults(t *testing.T) {
	d := DefaultProfileDefaults()
	require.NoError(t, d.Validate())

	now := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)
	p := d.NewProfile(7, now)
	assert.Equal(t, int64(7), p.UserKey)
	assert.Equal(t, int64(7), p.ChatID)
	assert.Equal(t, "0.95", p.ReductionCoefficient.String())
	assert.Equal(t, 2.0, p.InitialIntervalHours)
	assert.Equal(t, 0.5, p.MinIntervalHours)
	assert.Equal(t, 24.0, p.MaxIntervalHours)
	assert.True(t, p.RemindersEnabled)
	assert.Nil(t, p.TargetQuitDate)
	assert.Equal(t, now, p.CreatedAt)
}

func TestNormalizeCoefficient(t *testing.T) {
	c, err := NormalizeCoefficient(decimal.RequireFromString("0.926"))
	require.NoError(t, err)
	assert.Equal(t, "0.93", c.String())

	_, err = NormalizeCoefficient(decimal.NewFromInt(1))
	assert.NoError(t, err)

	for _, bad := range []string{"0", "-0.3", "0.001", "1.01", "2"} {
		_, err := NormalizeCoefficient(decimal.RequireFromString(bad))
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "value %s", bad)
	}
}

func TestValidateIntervals(t *testing.T) {
	assert.NoError(t, ValidateIntervals(2, 0.5, 24))
	assert.NoError(t, ValidateIntervals(1, 1, 1))

	assert.ErrorIs(t, ValidateIntervals(0, 0.5, 24), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(2, 0, 24), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(2, 25, 24), ErrInvalidConfiguration)
}

func TestValidateIntervals_RejectsNonFiniteAndHuge(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)

	assert.ErrorIs(t, ValidateIntervals(nan, 0.5, 24), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(2, nan, nan), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(inf, 0.5, 24), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(2, 0.5, inf), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(1e300, 0.5, 1e301), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateIntervals(2, 0.5, MaxIntervalLimitHours+1), ErrInvalidConfiguration)

	assert.NoError(t, ValidateIntervals(MaxIntervalLimitHours, 1, MaxIntervalLimitHours))
}

func TestProfileDefaultsValidate_RejectsBadCoefficient(t *testing.T) {
	d := DefaultProfileDefaults()
	d.ReductionCoefficient = decimal.Zero
	assert.ErrorIs(t, d.Validate(), ErrInvalidConfiguration)
}
