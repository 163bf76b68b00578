package schedule

import (
	"fmt"
	"strings"
	"time"
)

// All scheduling arithmetic runs on naive wall-clock values: time.Time carrying the local
// reading in the UTC location. No zone conversion happens after parsing.

const DateLayout = "2006-01-02"

var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// Naive keeps the wall-clock reading of t and drops its zone.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// NowIn returns the current wall clock of loc as a naive value.
func NowIn(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Naive(now.In(loc))
}

// ParseDate parses YYYY-MM-DD into a naive midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseDateTime parses an ISO-8601 date-time. Zone-less input is read as wall clock;
// input carrying an offset is moved into loc first.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date-time is required")
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NowIn(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q", s)
}

// DayStart truncates a naive value to its midnight.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two naive values fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// At places a time of day on the calendar date of day.
func At(day time.Time, t TimeOfDay) time.Time {
	return DayStart(day).Add(time.Duration(t) * time.Minute)
}
