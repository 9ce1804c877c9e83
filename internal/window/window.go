// Package window builds the service-date windows the probes search with.
// Windows are inclusive calendar days in local time.
package window

import (
	"fmt"
	"time"
)

// ISO is the date layout the search API accepts.
const ISO = "2006-01-02"

// Remote constraints. They are advisory: Check reports them, nothing enforces them.
const (
	MaxSpanDays  = 90
	LookbackDays = 730
)

// Window is an inclusive range of days.
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// Day truncates t to midnight in its location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// New builds a window from two days.
func New(start, end time.Time) Window {
	return Window{Start: Day(start), End: Day(end)}
}

// Parse builds a window from two ISO dates.
func Parse(start, end string) (Window, error) {
	s, err := time.ParseInLocation(ISO, start, time.Local)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(ISO, end, time.Local)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return New(s, e), nil
}

// Days is the inclusive number of days covered.
func (w Window) Days() int {
	return daysBetween(w.Start, w.End) + 1
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Adjacent reports whether o starts the day after w ends, or the reverse.
func (w Window) Adjacent(o Window) bool {
	return daysBetween(w.End, o.Start) == 1 || daysBetween(o.End, w.Start) == 1
}

// StartISO returns the start date formatted for the API.
func (w Window) StartISO() string { return w.Start.Format(ISO) }

// EndISO returns the end date formatted for the API.
func (w Window) EndISO() string { return w.End.Format(ISO) }

func (w Window) String() string {
	return w.StartISO() + " to " + w.EndISO()
}

func daysBetween(a, b time.Time) int {
	a, b = Day(a), Day(b)
	// Calendar arithmetic in UTC keeps DST days at 24h.
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// Quarters returns up to n consecutive 90-day windows walking back from
// today: end = today - i*90, start = end - 89. A window is kept only when its
// start is within lookbackDays of today.
func Quarters(today time.Time, n, lookbackDays int) []Window {
	today = Day(today)
	out := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		end := addDays(today, -i*MaxSpanDays)
		start := addDays(end, -(MaxSpanDays - 1))
		if daysBetween(start, today) > lookbackDays {
			continue
		}
		out = append(out, Window{Start: start, End: end, Label: fmt.Sprintf("Q%d", i+1)})
	}
	return out
}

// Month returns the first to last calendar day of a YYYY-MM month.
func Month(month string) (Window, error) {
	t, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return Window{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", month, err)
	}
	start := Day(t)
	end := start.AddDate(0, 1, -1)
	return Window{Start: start, End: end, Label: month}, nil
}

// Span returns the smallest window covering both a and b, whichever order
// they are given in.
func Span(a, b Window) Window {
	if b.Start.Before(a.Start) {
		a, b = b, a
	}
	end := a.End
	if b.End.After(end) {
		end = b.End
	}
	return Window{Start: a.Start, End: end, Label: a.Label + ".." + b.Label}
}

// Preceding returns the days-long window ending the day before w starts.
func Preceding(w Window, days int) Window {
	end := addDays(w.Start, -1)
	return Window{Start: addDays(end, -(days - 1)), End: end}
}

// LastDays returns [today-n, today].
func LastDays(today time.Time, n int) Window {
	today = Day(today)
	return Window{Start: addDays(today, -n), End: today, Label: fmt.Sprintf("last %d days", n)}
}

// Year returns the whole calendar year.
func Year(year int) Window {
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.Local),
		Label: fmt.Sprintf("%d", year),
	}
}

// Check returns advisory warnings for a window relative to today.
func Check(w Window, today time.Time) []string {
	today = Day(today)
	var warnings []string
	if w.End.Before(w.Start) {
		warnings = append(warnings, fmt.Sprintf("end date %s is before start date %s", w.EndISO(), w.StartISO()))
		return warnings
	}
	if w.Days() > MaxSpanDays {
		warnings = append(warnings, fmt.Sprintf("window spans %d days (remote limit is %d)", w.Days(), MaxSpanDays))
	}
	if daysBetween(w.Start, today) > LookbackDays {
		warnings = append(warnings, fmt.Sprintf("start date %s is older than 24 months", w.StartISO()))
	}
	if w.End.After(today) {
		warnings = append(warnings, fmt.Sprintf("end date %s is in the future", w.EndISO()))
	}
	return warnings
}
