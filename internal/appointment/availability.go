package appointment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/therapy-appointments/internal/schedule"
)

// DayAvailability partitions one therapist's slots on one date into open and taken.
// When Available is false only Message and AvailableDays are meaningful.
type DayAvailability struct {
	TherapistID    uuid.UUID
	Date           time.Time
	DayOfWeek      time.Weekday
	Available      bool
	Windows        []schedule.Window
	AvailableSlots []schedule.TimeOfDay
	BookedSlots    []schedule.TimeOfDay
	TotalSlots     int
	Message        string
	AvailableDays  []string
}

// AvailabilityWindow renders the day's windows as "HH:MM - HH:MM", comma separated for split shifts.
func (d DayAvailability) AvailabilityWindow() string {
	return windowsText(d.Windows)
}

// AvailabilityService answers "which slots are open on date D" from a read of the directory and ledger.
type AvailabilityService struct {
	directory Directory
	ledger    Ledger
}

func NewAvailabilityService(directory Directory, ledger Ledger) *AvailabilityService {
	return &AvailabilityService{directory: directory, ledger: ledger}
}

// QueryOpenSlots lists the open slots of therapistID on date (YYYY-MM-DD). now is naive wall clock.
// Past dates are refused; for today, slots that have already started are left out.
func (s *AvailabilityService) QueryOpenSlots(ctx context.Context, therapistID, date string, now time.Time) (*DayAvailability, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, reject(ReasonMalformedDate, "%v", err)
	}
	if day.Before(schedule.DayStart(now)) {
		return nil, reject(ReasonInPast, "cannot check availability for past dates (%s)", day.Format(schedule.DateLayout))
	}

	id, err := uuid.Parse(therapistID)
	if err != nil {
		return nil, reject(ReasonUnknownParty, "therapist %q not found", therapistID)
	}

	therapist, err := s.directory.GetTherapist(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			return nil, reject(ReasonUnknownParty, "therapist %s not found", id)
		}
		return nil, unavailable("resolve therapist", err)
	}

	result := &DayAvailability{
		TherapistID: id,
		Date:        day,
		DayOfWeek:   day.Weekday(),
	}

	windows := therapist.Availability.WindowsFor(day.Weekday())
	if len(windows) == 0 {
		result.Message = "Therapist is not available on " + day.Weekday().String()
		result.AvailableDays = therapist.Availability.DayNames()
		return result, nil
	}

	taken, err := s.ledger.Overlapping(ctx, PartyTherapist, id, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, unavailable("load therapist appointments", err)
	}

	slots := schedule.SlotsFor(therapist.Availability, day.Weekday())
	isToday := schedule.SameDay(day, now)

	open := make([]schedule.TimeOfDay, 0, len(slots))
	for _, slot := range slots {
		start := schedule.At(day, slot)
		if isToday && !start.After(now) {
			continue
		}
		if overlapsAny(taken, start) {
			continue
		}
		open = append(open, slot)
	}

	result.Available = true
	result.Windows = windows
	result.AvailableSlots = open
	result.BookedSlots = bookedOn(day, taken)
	result.TotalSlots = len(slots)

	return result, nil
}

func overlapsAny(appts []Appointment, slotStart time.Time) bool {
	for _, a := range appts {
		if schedule.Overlaps(a.StartAt, slotStart) {
			return true
		}
	}
	return false
}

// bookedOn returns the distinct start times of holding appointments on day, ascending.
func bookedOn(day time.Time, appts []Appointment) []schedule.TimeOfDay {
	seen := make(map[schedule.TimeOfDay]bool, len(appts))
	booked := make([]schedule.TimeOfDay, 0, len(appts))
	for _, a := range appts {
		if !a.Status.Holds() || !schedule.SameDay(day, a.StartAt) {
			continue
		}
		t := schedule.TimeOfDayOf(a.StartAt)
		if !seen[t] {
			seen[t] = true
			booked = append(booked, t)
		}
	}
	sort.Slice(booked, func(i, j int) bool { return booked[i] < booked[j] })
	return booked
}
