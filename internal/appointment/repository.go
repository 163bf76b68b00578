package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/therapy-appointments/internal/schedule"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTherapistNotFound   = errors.New("therapist not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotAlreadyTaken is raised by the store when a concurrent booking committed first.
	ErrSlotAlreadyTaken = errors.New("slot was taken by a concurrent booking")

	// ErrRoleConflict is returned by UpsertUser when the email belongs to an identity of another role.
	ErrRoleConflict = errors.New("email is registered with a different role")

	// ErrCollaboratorUnavailable marks a failure of the directory or ledger store itself.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// Directory resolves identities. It is the only source of therapist availability.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetTherapist(ctx context.Context, id uuid.UUID) (*User, error)
	ListTherapists(ctx context.Context) ([]User, error)

	UpsertUser(ctx context.Context, u User) (*User, error)
	ReplaceAvailability(ctx context.Context, therapistID uuid.UUID, avail schedule.Availability) error
}

// Ledger is the durable set of appointments.
type Ledger interface {
	// Overlapping returns appointments of one party that still hold their slot and whose
	// half-open 30 minute interval intersects [start, end).
	Overlapping(ctx context.Context, party Party, id uuid.UUID, start, end time.Time) ([]Appointment, error)

	Insert(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes, medication string) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointmentsByTherapist(ctx context.Context, therapistID uuid.UUID) ([]AppointmentDetail, error)
	ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]AppointmentDetail, error)
	ListPatientsOfTherapist(ctx context.Context, therapistID uuid.UUID) ([]Contact, error)

	// Expiry worker
	FindLapsedPending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Directory
	Ledger
}
