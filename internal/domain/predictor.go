package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RecentWindow is how many latest events feed the moving average.
	RecentWindow = 5
	// QuitHorizonDays caps the quit-date simulation.
	QuitHorizonDays = 365
)

// QuitProjection is the outcome of the quit-date simulation.
type QuitProjection struct {
	Date   time.Time // midnight in now's location
	Days   int
	Capped bool // the simulation hit QuitHorizonDays without reaching the max interval
}

// GrowthFactor returns the per-step interval multiplier, 1/c.
// A non-positive coefficient yields 1 (interval unchanged).
func GrowthFactor(c decimal.Decimal) float64 {
	f := c.InexactFloat64()
	if f <= 0 {
		return 1.0
	}
	return 1.0 / f
}

// AverageInterval returns the mean gap in hours between consecutive recent
// events (newest first). With fewer than two events it falls back to the
// profile's initial interval.
func AverageInterval(p *Profile, recent []Event) float64 {
	if len(recent) < 2 {
		return p.InitialIntervalHours
	}
	var sum float64
	for i := 0; i+1 < len(recent); i++ {
		gap := recent[i].OccurredAt.Sub(recent[i+1].OccurredAt)
		sum += math.Abs(gap.Hours())
	}
	return sum / float64(len(recent)-1)
}

// NextEventTime predicts when the next event is allowed. canPredict is false
// until there are at least two events; the returned time is still a usable
// estimate based on the initial interval.
func NextEventTime(p *Profile, recent []Event, now time.Time) (next time.Time, canPredict bool) {
	if len(recent) < 2 {
		return now.Add(hours(p.InitialIntervalHours)), false
	}
	interval := AverageInterval(p, recent) * GrowthFactor(p.ReductionCoefficient)
	interval = clamp(interval, p.MinIntervalHours, p.MaxIntervalHours)
	return now.Add(hours(interval)), true
}

// ProjectQuitDate simulates one growth step per day starting from the current
// average interval until it reaches the profile's max interval.
func ProjectQuitDate(p *Profile, recent []Event, now time.Time) QuitProjection {
	growth := GrowthFactor(p.ReductionCoefficient)
	temp := AverageInterval(p, recent)

	days := 0
	for temp < p.MaxIntervalHours && days < QuitHorizonDays {
		temp *= growth
		days++
	}

	y, m, d := now.Date()
	return QuitProjection{
		Date:   time.Date(y, m, d+days, 0, 0, 0, 0, now.Location()),
		Days:   days,
		Capped: temp < p.MaxIntervalHours,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
