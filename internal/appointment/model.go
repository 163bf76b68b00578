package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/therapy-appointments/internal/schedule"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAccepted  AppointmentStatus = "accepted"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Holds reports whether an appointment in this status still occupies its slot.
func (s AppointmentStatus) Holds() bool {
	return s != StatusRejected && s != StatusCancelled
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the moves a therapist (or the owning user, for cancel) may make.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FreedStatuses are excluded from overlap checks.
var FreedStatuses = []AppointmentStatus{StatusRejected, StatusCancelled}

type AppointmentType string

const (
	TypeVideoCall AppointmentType = "Video Call"
	TypeInPerson  AppointmentType = "In-Person"
	TypePhoneCall AppointmentType = "Phone Call"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeVideoCall, TypeInPerson, TypePhoneCall:
		return true
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleTherapist Role = "therapist"
	RoleAdmin     Role = "admin"
)

// User is a role-tagged identity. Availability is only populated for therapists.
type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Role           Role
	Phone          *string
	Address        *string
	Specialization *string
	Availability   schedule.Availability
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Appointment occupies the half-open slot [StartAt, StartAt+30m). StartAt is naive wall clock.
type Appointment struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	TherapistID uuid.UUID
	StartAt     time.Time
	Type        AppointmentType
	Status      AppointmentStatus
	Notes       string
	Medication  string
	RoomToken   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a Appointment) EndAt() time.Time {
	return schedule.SlotEnd(a.StartAt)
}

// BookingRequest is the raw, unvalidated input of a booking.
type BookingRequest struct {
	UserID      string
	TherapistID string
	DateTime    string
	Type        string
}

// Party selects which side of an appointment an overlap query looks at.
type Party string

const (
	PartyTherapist Party = "therapist"
	PartyUser      Party = "user"
)

// Contact is the counterpart summary attached to appointment listings.
type Contact struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   *string
	Address *string
}

type AppointmentDetail struct {
	Appointment
	User      *Contact
	Therapist *Contact
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
