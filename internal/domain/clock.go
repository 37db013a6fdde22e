package domain

import "time"

// Clock supplies the current time in the reference zone.
type Clock interface {
	Now() time.Time
}

// ZoneClock reads the wall clock and converts it to a fixed location.
type ZoneClock struct {
	Loc *time.Location
}

func NewZoneClock(loc *time.Location) ZoneClock {
	if loc == nil {
		loc = time.UTC
	}
	return ZoneClock{Loc: loc}
}

func (c ZoneClock) Now() time.Time {
	return time.Now().In(c.Loc)
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
