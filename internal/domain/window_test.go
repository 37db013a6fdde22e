package domain

import (
	"testing"
	"time"
)

// helper: build a time in given tz
func mustLocal(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestActiveWindow_InsideKeepsTime(t *testing.T) {
	loc := mustMoscow(t)
	w := ActiveWindow{FromM: 8 * 60, ToM: 23 * 60, Loc: loc}
	at := mustLocal(t, "Europe/Moscow", 2025, time.May, 5, 19, 46).UTC()

	if got := w.Defer(at); !got.Equal(at) {
		t.Fatalf("want %s, got %s", at, got)
	}
}

func TestActiveWindow_BeforeStartMovesToToday(t *testing.T) {
	loc := mustMoscow(t)
	w := ActiveWindow{FromM: 8 * 60, ToM: 23 * 60, Loc: loc}
	at := mustLocal(t, "Europe/Moscow", 2025, time.May, 6, 3, 10)

	want := mustLocal(t, "Europe/Moscow", 2025, time.May, 6, 8, 0)
	if got := w.Defer(at); !got.Equal(want) {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestActiveWindow_AfterEndMovesToTomorrow(t *testing.T) {
	loc := mustMoscow(t)
	w := ActiveWindow{FromM: 8 * 60, ToM: 23 * 60, Loc: loc}
	at := mustLocal(t, "Europe/Moscow", 2025, time.May, 6, 23, 30)

	want := mustLocal(t, "Europe/Moscow", 2025, time.May, 7, 8, 0)
	if got := w.Defer(at); !got.Equal(want) {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestActiveWindow_WrapWindow(t *testing.T) {
	loc := mustMoscow(t)
	w := ActiveWindow{FromM: 22 * 60, ToM: 2 * 60, Loc: loc}

	inside := mustLocal(t, "Europe/Moscow", 2025, time.May, 8, 1, 30)
	if got := w.Defer(inside); !got.Equal(inside) {
		t.Fatalf("want %s, got %s", inside, got)
	}

	midday := mustLocal(t, "Europe/Moscow", 2025, time.May, 8, 13, 0)
	want := mustLocal(t, "Europe/Moscow", 2025, time.May, 8, 22, 0)
	if got := w.Defer(midday); !got.Equal(want) {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestActiveWindow_EqualBoundsUnrestricted(t *testing.T) {
	w := ActiveWindow{FromM: 0, ToM: 0, Loc: time.UTC}
	at := time.Date(2025, time.May, 8, 3, 0, 0, 0, time.UTC)
	if got := w.Defer(at); !got.Equal(at) {
		t.Fatalf("want %s, got %s", at, got)
	}
	if !w.Unrestricted() {
		t.Fatal("want unrestricted")
	}
}

func TestInWindow(t *testing.T) {
	if InWindow(10, 10, 10) {
		t.Fatal("zero-length window must be empty")
	}
	if !InWindow(23*60, 22*60, 2*60) || InWindow(12*60, 22*60, 2*60) {
		t.Fatal("wrap window mismatch")
	}
}
