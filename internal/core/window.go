package core

import (
	"fmt"
	"time"
)

const (
	// DefaultLookbackDays is how far back from the end day an omitted start reaches.
	DefaultLookbackDays = 30

	// MaxWindowDays bounds a window so the daily series stays small.
	MaxWindowDays = 366
)

// Window is an inclusive range of calendar days.
type Window struct {
	Start Date
	End   Date
}

// LengthDays counts the days in w, both ends included.
func (w Window) LengthDays() int {
	return w.Start.DaysUntil(w.End) + 1
}

// Previous returns the window of equal length ending the day before w.Start.
func (w Window) Previous() Window {
	n := w.LengthDays()
	return Window{Start: w.Start.AddDays(-n), End: w.End.AddDays(-n)}
}

// Contains reports whether d falls inside w.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !w.End.Before(d)
}

// Days enumerates every calendar day in w in ascending order.
func (w Window) Days() []Date {
	days := make([]Date, 0, w.LengthDays())
	for d := w.Start; !w.End.Before(d); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// ResolveWindow turns optional from/to strings into a window.
//
// A missing to defaults to the calendar day of now; a missing from defaults
// to DefaultLookbackDays before to. Explicit values must be yyyy-MM-dd and
// may span at most MaxWindowDays days.
func ResolveWindow(from, to string, now time.Time) (Window, error) {
	end := DateOf(now)
	if to != "" {
		d, err := ParseDate(to)
		if err != nil {
			return Window{}, err
		}
		end = d
	}

	start := end.AddDays(-DefaultLookbackDays)
	if from != "" {
		d, err := ParseDate(from)
		if err != nil {
			return Window{}, err
		}
		start = d
	}

	if end.Before(start) {
		return Window{}, ErrInvalidRange
	}
	w := Window{Start: start, End: end}
	if w.LengthDays() > MaxWindowDays {
		return Window{}, fmt.Errorf("%w: longer than %d days", ErrInvalidRange, MaxWindowDays)
	}
	return w, nil
}
