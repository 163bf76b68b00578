package schedule

import "time"

// GenerateSlots expands w into slot start times, beginning at w.Start and stopping strictly
// before w.End. A window shorter than one slot yields nothing.
func GenerateSlots(w Window) []TimeOfDay {
	var slots []TimeOfDay
	for cursor := w.Start; cursor+SlotMinutes <= w.End; cursor += SlotMinutes {
		slots = append(slots, cursor)
	}
	return slots
}

// SlotsFor returns the slots of every window on day, in time order.
func SlotsFor(a Availability, day time.Weekday) []TimeOfDay {
	var slots []TimeOfDay
	for _, w := range a.WindowsFor(day) {
		slots = append(slots, GenerateSlots(w)...)
	}
	return slots
}

// Overlaps reports whether two slot-length appointments starting at a and b share any time,
// comparing half-open intervals so back to back slots do not collide.
func Overlaps(a, b time.Time) bool {
	return a.Before(b.Add(SlotDuration)) && b.Before(a.Add(SlotDuration))
}

// SlotEnd is the exclusive end of the slot starting at start.
func SlotEnd(start time.Time) time.Time {
	return start.Add(SlotDuration)
}
