package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrInvalidNumber  = errors.New("invalid number")
	ErrIntervalFormat = errors.New("expected three values: initial min max")
)

var hundred = decimal.NewFromInt(100)

// ParseCoefficient parses a reduction coefficient typed by a user.
// Accepted forms: "0.95", "0,95", "95%", "95". Bare whole numbers of 2 or more
// are read as percentages; fractional values above 1 are rejected.
func ParseCoefficient(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyInput
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, ",", ".")

	c, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if percent || (c.IsInteger() && c.GreaterThanOrEqual(decimal.NewFromInt(2))) {
		c = c.Div(hundred)
	}
	return NormalizeCoefficient(c)
}

// ParseIntervals parses "initial min max" in hours, e.g. "2 0.5 24".
// Values may also be separated by "/" or ";".
func ParseIntervals(s string) (initial, minH, maxH float64, err error) {
	s = strings.NewReplacer("/", " ", ";", " ").Replace(strings.TrimSpace(s))
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return 0, 0, 0, ErrEmptyInput
	}
	if len(parts) != 3 {
		return 0, 0, 0, ErrIntervalFormat
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, perr := strconv.ParseFloat(strings.ReplaceAll(p, ",", "."), 64)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, p)
		}
		vals[i] = v
	}
	if err := ValidateIntervals(vals[0], vals[1], vals[2]); err != nil {
		return 0, 0, 0, err
	}
	return vals[0], vals[1], vals[2], nil
}

// FormatPercent renders a coefficient as a whole percentage, e.g. "95%".
func FormatPercent(c decimal.Decimal) string {
	return c.Mul(hundred).Round(0).String() + "%"
}

// ParseActiveWindow parses "HH:MM–HH:MM" or "HH:MM-HH:MM" into minutes since midnight.
func ParseActiveWindow(s string) (fromM, toM int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, errors.New("empty window")
	}
	sep := "–"
	if strings.Contains(s, "-") && !strings.Contains(s, "–") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, errors.New("expected format HH:MM–HH:MM")
	}
	fromM, err = parseHHMM(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("from: %w", err)
	}
	toM, err = parseHHMM(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("to: %w", err)
	}
	return fromM, toM, nil
}

func parseHHMM(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// LoadZone resolves an IANA location name.
func LoadZone(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfiguration, tz, err)
	}
	return loc, nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// FormatHours renders fractional hours with one decimal, e.g. "3.2 h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 1, 64) + " h"
}
