package domain

import "time"

// InWindow returns true if local time (minutes since midnight) is inside active window.
// Supports wrap-around windows like 22:00–02:00 (fromM > toM).
func InWindow(localM, fromM, toM int) bool {
	if fromM == toM {
		return false // zero-length window
	}
	if fromM < toM {
		return localM >= fromM && localM < toM
	}
	// wrap: [from..1440) U [0..to)
	return localM >= fromM || localM < toM
}

// ActiveWindow restricts when reminders may be delivered.
// Equal bounds mean no restriction.
type ActiveWindow struct {
	FromM int
	ToM   int
	Loc   *time.Location
}

func (w ActiveWindow) Unrestricted() bool { return w.FromM == w.ToM }

func (w ActiveWindow) String() string {
	return FormatMinutes(w.FromM) + "–" + FormatMinutes(w.ToM)
}

// Defer returns t itself when it falls inside the window, otherwise the next
// window start after t.
func (w ActiveWindow) Defer(t time.Time) time.Time {
	if w.Unrestricted() {
		return t
	}
	loc := w.Loc
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if InWindow(local.Hour()*60+local.Minute(), w.FromM, w.ToM) {
		return t
	}
	// Outside a wrap window we are between toM and fromM, so fromM today is ahead.
	// Outside a normal window fromM is either later today or tomorrow.
	start := time.Date(local.Year(), local.Month(), local.Day(), w.FromM/60, w.FromM%60, 0, 0, loc)
	if !start.After(local) {
		start = start.AddDate(0, 0, 1)
	}
	return start
}
