package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/therapy-appointments/internal/schedule"
)

// RejectionReason is the closed set of reasons a booking request can be refused for.
// The values double as wire codes.
type RejectionReason string

const (
	ReasonMalformedDate         RejectionReason = "malformed_date"
	ReasonInPast                RejectionReason = "in_past"
	ReasonUnknownParty          RejectionReason = "unknown_party"
	ReasonInvalidType           RejectionReason = "invalid_type"
	ReasonNoAvailabilityThatDay RejectionReason = "no_availability_that_day"
	ReasonOutsideWindow         RejectionReason = "outside_window"
	ReasonNotSlotAligned        RejectionReason = "not_slot_aligned"
	ReasonTherapistDoubleBooked RejectionReason = "therapist_double_booked"
	ReasonUserDoubleBooked      RejectionReason = "user_double_booked"
)

// Rejection is an expected refusal, never a fault. Nothing has been written when one is returned.
type Rejection struct {
	Reason RejectionReason
	Detail string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func reject(reason RejectionReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// NewRoomToken returns an opaque video room name, e.g. "therapy-room-3f9c1a2b7d40".
func NewRoomToken() string {
	return "therapy-room-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorUnavailable, err)
}

// Validator decides whether a booking request may be admitted. It only reads.
type Validator struct {
	directory Directory
	ledger    Ledger
	loc       *time.Location
	roomToken func() string
}

func NewValidator(directory Directory, ledger Ledger, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	return &Validator{
		directory: directory,
		ledger:    ledger,
		loc:       loc,
		roomToken: NewRoomToken,
	}
}

// Validate runs the admission checks in order and stops at the first failure. now must be a
// naive wall-clock value. On success the returned appointment is pending and not yet stored.
func (v *Validator) Validate(ctx context.Context, req BookingRequest, now time.Time) (*Appointment, error) {
	start, err := schedule.ParseDateTime(req.DateTime, v.loc)
	if err != nil {
		return nil, reject(ReasonMalformedDate, "%v", err)
	}

	if !start.After(now) {
		return nil, reject(ReasonInPast, "cannot book appointments in the past (%s)", start.Format("2006-01-02 15:04"))
	}

	user, therapist, err := v.resolveParties(ctx, req)
	if err != nil {
		return nil, err
	}

	apptType := AppointmentType(req.Type)
	if !apptType.Valid() {
		return nil, reject(ReasonInvalidType, "invalid appointment type %q, want one of %q, %q, %q",
			req.Type, TypeVideoCall, TypeInPerson, TypePhoneCall)
	}

	day := start.Weekday()
	windows := therapist.Availability.WindowsFor(day)
	if len(windows) == 0 {
		return nil, reject(ReasonNoAvailabilityThatDay, "therapist is not available on %s. Available days: %s",
			day, availableDaysText(therapist.Availability))
	}

	tod := schedule.TimeOfDayOf(start)
	if !insideAny(windows, tod) {
		return nil, reject(ReasonOutsideWindow, "appointment time %s is outside the therapist's availability (%s) on %s",
			tod, windowsText(windows), day)
	}

	if !tod.Aligned() || start.Second() != 0 || start.Nanosecond() != 0 {
		return nil, reject(ReasonNotSlotAligned,
			"appointments must be scheduled on %d minute intervals (e.g. 09:00, 09:30, 10:00)", schedule.SlotMinutes)
	}

	end := schedule.SlotEnd(start)

	clash, err := v.ledger.Overlapping(ctx, PartyTherapist, therapist.ID, start, end)
	if err != nil {
		return nil, unavailable("check therapist appointments", err)
	}
	if len(clash) > 0 {
		return nil, reject(ReasonTherapistDoubleBooked, "this time slot is already booked, please choose a different time")
	}

	clash, err = v.ledger.Overlapping(ctx, PartyUser, user.ID, start, end)
	if err != nil {
		return nil, unavailable("check user appointments", err)
	}
	if len(clash) > 0 {
		return nil, reject(ReasonUserDoubleBooked, "you already have an appointment at this time, please choose a different time")
	}

	return &Appointment{
		ID:          uuid.New(),
		UserID:      user.ID,
		TherapistID: therapist.ID,
		StartAt:     start,
		Type:        apptType,
		Status:      StatusPending,
		RoomToken:   v.roomToken(),
	}, nil
}

func (v *Validator) resolveParties(ctx context.Context, req BookingRequest) (*User, *User, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, nil, reject(ReasonUnknownParty, "user %q not found", req.UserID)
	}
	therapistID, err := uuid.Parse(req.TherapistID)
	if err != nil {
		return nil, nil, reject(ReasonUnknownParty, "therapist %q not found", req.TherapistID)
	}

	user, err := v.directory.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, reject(ReasonUnknownParty, "user %s not found", userID)
		}
		return nil, nil, unavailable("resolve user", err)
	}

	therapist, err := v.directory.GetTherapist(ctx, therapistID)
	if err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			return nil, nil, reject(ReasonUnknownParty, "therapist %s not found", therapistID)
		}
		return nil, nil, unavailable("resolve therapist", err)
	}
	if therapist.Role != RoleTherapist {
		return nil, nil, reject(ReasonUnknownParty, "%s is not a therapist", therapistID)
	}
	if user.ID == therapist.ID {
		return nil, nil, reject(ReasonUnknownParty, "a therapist cannot book with themselves")
	}

	return user, therapist, nil
}

func insideAny(windows []schedule.Window, t schedule.TimeOfDay) bool {
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

func windowsText(windows []schedule.Window) string {
	parts := make([]string, len(windows))
	for i, w := range windows {
		parts[i] = w.String()
	}
	return strings.Join(parts, ", ")
}

func availableDaysText(a schedule.Availability) string {
	names := a.DayNames()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
