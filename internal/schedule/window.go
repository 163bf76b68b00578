package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidWindow = errors.New("invalid availability window")

// ParseWeekday accepts full English day names or their three letter prefix, any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", s)
}

// Window is a recurring weekly interval [Start, End) on Day.
type Window struct {
	Day   time.Weekday
	Start TimeOfDay
	End   TimeOfDay
}

// NewWindow parses a window from its wire form ("Monday", "09:00", "17:00") and validates it.
func NewWindow(day, start, end string) (Window, error) {
	d, err := ParseWeekday(day)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}

	w := Window{Day: d, Start: s, End: e}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate checks start < end and that both boundaries sit on the slot grid, so every
// generated slot is also a bookable one.
func (w Window) Validate() error {
	if w.Day < time.Sunday || w.Day > time.Saturday {
		return fmt.Errorf("%w: day %d out of range", ErrInvalidWindow, w.Day)
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w: %s start %s must be before end %s", ErrInvalidWindow, w.Day, w.Start, w.End)
	}
	if !w.Start.Aligned() || !w.End.Aligned() {
		return fmt.Errorf("%w: %s %s must start and end on a %d minute boundary", ErrInvalidWindow, w.Day, w, SlotMinutes)
	}
	return nil
}

// Contains reports whether t is inside the half-open window.
func (w Window) Contains(t TimeOfDay) bool {
	return t >= w.Start && t < w.End
}

func (w Window) overlaps(o Window) bool {
	return w.Day == o.Day && w.Start < o.End && o.Start < w.End
}

// String renders "HH:MM - HH:MM".
func (w Window) String() string {
	return w.Start.String() + " - " + w.End.String()
}

type windowJSON struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{Day: w.Day.String(), Start: w.Start.String(), End: w.End.String()})
}

func (w *Window) UnmarshalJSON(data []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewWindow(raw.Day, raw.Start, raw.End)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Availability is a therapist's weekly schedule. Order is the order the windows were saved in.
type Availability []Window

// WindowFor returns the first window for day.
func (a Availability) WindowFor(day time.Weekday) (Window, bool) {
	for _, w := range a {
		if w.Day == day {
			return w, true
		}
	}
	return Window{}, false
}

// WindowsFor returns every window for day, sorted by start.
func (a Availability) WindowsFor(day time.Weekday) []Window {
	var out []Window
	for _, w := range a {
		if w.Day == day {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Days lists the distinct days with at least one window, in saved order.
func (a Availability) Days() []time.Weekday {
	seen := make(map[time.Weekday]bool, len(a))
	var days []time.Weekday
	for _, w := range a {
		if !seen[w.Day] {
			seen[w.Day] = true
			days = append(days, w.Day)
		}
	}
	return days
}

// DayNames is Days rendered as English names.
func (a Availability) DayNames() []string {
	days := a.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return names
}

// Validate checks each window and rejects overlapping windows on the same day.
// Several disjoint windows on one day (split shifts) are allowed.
func (a Availability) Validate() error {
	for i, w := range a {
		if err := w.Validate(); err != nil {
			return err
		}
		for _, o := range a[:i] {
			if w.overlaps(o) {
				return fmt.Errorf("%w: %s %s overlaps %s", ErrInvalidWindow, w.Day, w, o)
			}
		}
	}
	return nil
}

// Summary is the human sentence shown next to a therapist, e.g.
// "available only on Mondays from 09:00 to 17:00" or "available on Tuesdays and Thursdays".
func (a Availability) Summary() string {
	days := a.DayNames()
	switch len(days) {
	case 0:
		return "no availability set"
	case 1:
		windows := a.WindowsFor(a[0].Day)
		spans := make([]string, len(windows))
		for i, w := range windows {
			spans[i] = fmt.Sprintf("from %s to %s", w.Start, w.End)
		}
		return fmt.Sprintf("available only on %ss %s", days[0], strings.Join(spans, " and "))
	case 2:
		return fmt.Sprintf("available on %ss and %ss", days[0], days[1])
	default:
		return fmt.Sprintf("available on %ss", strings.Join(days, "s, "))
	}
}
