// Package timeslot turns a restaurant's local shift definitions into
// concrete instants: service-window membership tests and the bookable
// start-time grid for a date.
package timeslot

import (
	"fmt"
	"time"
)

// Interval is the slot granularity.
const Interval = 15 * time.Minute

// Window is a local-clock open window, "HH:MM" to "HH:MM", with no implied
// date. Start must sort before End.
type Window struct {
	Start string
	End   string
}

func minutesOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("bad time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// WithinWindow reports whether instant t falls inside any window, evaluated
// against the wall clock of tz at t. Membership is half-open: a time equal
// to a window's end is outside it. No windows means always open.
//
// Conversion goes through the IANA zone's offset rules at t's calendar
// date, so DST transitions resolve correctly.
func WithinWindow(t time.Time, tz string, windows []Window) (bool, error) {
	if len(windows) == 0 {
		return true, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return false, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	local := t.In(loc)
	m := local.Hour()*60 + local.Minute()
	for _, w := range windows {
		start, err := minutesOfDay(w.Start)
		if err != nil {
			return false, err
		}
		end, err := minutesOfDay(w.End)
		if err != nil {
			return false, err
		}
		if m >= start && m < end {
			return true, nil
		}
	}
	return false, nil
}

// ForDate produces the ordered bookable start instants for date
// ("2006-01-02") in tz. With no windows the grid runs from local 00:00 up
// to local 23:59; otherwise each window yields its own grid (start
// inclusive, stopping before the window end) and the grids concatenate in
// declaration order.
//
// A slot close to a window's end is still emitted even when the service
// duration would run past the end; callers depend on the permissive
// behavior, so no truncation happens here.
func ForDate(date string, tz string, windows []Window) ([]time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	at := func(clock string) (time.Time, error) {
		t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad date %q / time %q: %w", date, clock, err)
		}
		return t, nil
	}

	var slots []time.Time
	emit := func(from, until time.Time) {
		for cur := from; cur.Before(until); cur = cur.Add(Interval) {
			slots = append(slots, cur)
		}
	}

	if len(windows) == 0 {
		dayStart, err := at("00:00")
		if err != nil {
			return nil, err
		}
		dayEnd, err := at("23:59")
		if err != nil {
			return nil, err
		}
		emit(dayStart, dayEnd)
		return slots, nil
	}

	for _, w := range windows {
		start, err := at(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := at(w.End)
		if err != nil {
			return nil, err
		}
		emit(start, end)
	}
	return slots, nil
}
