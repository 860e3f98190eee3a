// Package dates handles the calendar-day arithmetic used throughout the
// radar: every date is a time.Time pinned to UTC midnight.
package dates

import (
	"time"

	"github.com/rotisserie/eris"
)

// Layout is the wire format for calendar dates.
const Layout = "2006-01-02"

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Parse resolves a date expression to a calendar day. Empty and "today"
// resolve to now's date, "yesterday" to the day before; anything else must
// be YYYY-MM-DD.
func Parse(s string, now time.Time) (time.Time, error) {
	switch s {
	case "", "today":
		return Day(now), nil
	case "yesterday":
		return Day(now).AddDate(0, 0, -1), nil
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "dates: parse %q", s)
	}
	return Day(t), nil
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Range enumerates every day from start through end inclusive, ascending.
// Returns nil when end precedes start.
func Range(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
