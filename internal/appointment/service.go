package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/therapy-appointments/internal/config"
	"github.com/hackgods/therapy-appointments/internal/metrics"
	redisclient "github.com/hackgods/therapy-appointments/internal/redis"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentNotesUpdated  = "APPOINTMENT_NOTES_UPDATED"
	EventAppointmentLapsed        = "APPOINTMENT_LAPSED"
)

var (
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatus           = errors.New("invalid appointment status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidAvailability     = errors.New("invalid availability")
	ErrInvalidEmail            = errors.New("invalid email")
)

type Service struct {
	repo         Repository
	locker       redisclient.Locker
	validator    *Validator
	availability *AvailabilityService
	logger       *zerolog.Logger
	loc          *time.Location
	clock        func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &Service{
		repo:         repo,
		locker:       locker,
		validator:    NewValidator(repo, repo, loc),
		availability: NewAvailabilityService(repo, repo),
		logger:       logger,
		loc:          loc,
		clock:        time.Now,
	}
}

// Now is the current naive wall clock in the configured zone.
func (s *Service) Now() time.Time {
	return schedule.NowIn(s.clock(), s.loc)
}

// BookAppointment validates and stores a booking.
// The therapist slot and the user slot are both locked in Redis for the duration of
// validate+insert; the partial unique indexes catch anything that slips past the lock,
// and carry admission alone while Redis is down.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	now := s.Now()

	var created *Appointment
	admit := func(ctx context.Context) error {
		appt, err := s.admit(ctx, req, now)
		if err != nil {
			return err
		}
		created = appt
		return nil
	}

	var err error
	if keys := s.lockKeys(req); len(keys) > 0 {
		err = s.locker.WithSlotLock(ctx, keys, admit)
		if errors.Is(err, redisclient.ErrLockBackend) {
			// the partial unique indexes still refuse a second holder of either slot
			s.logger.Warn().Err(err).Msg("slot lock unavailable, admitting without lock")
			err = admit(ctx)
		}
	} else {
		// unparseable ids or date-time; validation will refuse the request without touching the ledger
		err = admit(ctx)
	}

	if err == nil {
		metrics.IncBookingAdmitted(string(created.Type))
		s.logger.Info().
			Str("appointment_id", created.ID.String()).
			Str("therapist_id", created.TherapistID.String()).
			Str("user_id", created.UserID.String()).
			Time("start_at", created.StartAt).
			Msg("appointment booked")
		return created, nil
	}

	if rej, ok := AsRejection(err); ok {
		metrics.IncBookingRejected(string(rej.Reason))
		s.logger.Debug().Str("reason", string(rej.Reason)).Str("detail", rej.Detail).Msg("booking rejected")
		return nil, rej
	}

	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		metrics.IncBookingConflict("lock")
		return nil, ErrSlotBeingBooked
	case errors.Is(err, ErrSlotAlreadyTaken):
		metrics.IncBookingConflict("unique_index")
		s.logger.Warn().Err(err).Str("therapist_id", req.TherapistID).Str("date_time", req.DateTime).Msg("booking lost race at storage layer")
		return nil, err
	case errors.Is(err, ErrCollaboratorUnavailable):
		s.logger.Error().Err(err).Msg("booking failed")
		return nil, err
	default:
		s.logger.Error().Err(err).Msg("slot lock failed")
		return nil, unavailable("slot lock", err)
	}
}

func (s *Service) admit(ctx context.Context, req BookingRequest, now time.Time) (*Appointment, error) {
	appt, err := s.validator.Validate(ctx, req, now)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Insert(ctx, *appt)
	if err != nil {
		return nil, storeErr("insert appointment", err)
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"user_id":      created.UserID.String(),
		"therapist_id": created.TherapistID.String(),
		"start_at":     created.StartAt.Format("2006-01-02T15:04"),
		"type":         created.Type,
	})

	return created, nil
}

// lockKeys returns the therapist and user slot keys, or nil when the request cannot be parsed.
func (s *Service) lockKeys(req BookingRequest) []string {
	start, err := schedule.ParseDateTime(req.DateTime, s.loc)
	if err != nil {
		return nil
	}
	therapistID, err := uuid.Parse(req.TherapistID)
	if err != nil {
		return nil
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil
	}

	start = start.Truncate(time.Minute)
	return []string{
		redisclient.SlotKey(string(PartyTherapist), therapistID, start),
		redisclient.SlotKey(string(PartyUser), userID, start),
	}
}

// QueryOpenSlots answers the availability query for one therapist and date.
func (s *Service) QueryOpenSlots(ctx context.Context, therapistID, date string) (*DayAvailability, error) {
	day, err := s.availability.QueryOpenSlots(ctx, therapistID, date, s.Now())
	if err != nil {
		if errors.Is(err, ErrCollaboratorUnavailable) {
			s.logger.Error().Err(err).Str("therapist_id", therapistID).Msg("availability query failed")
		}
		return nil, err
	}

	metrics.IncAvailabilityQuery(day.Available)
	return day, nil
}

// UpdateStatus applies a therapist action (or a cancellation) to an appointment.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	to := AppointmentStatus(strings.ToLower(strings.TrimSpace(status)))
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, storeErr("load appointment", err)
	}

	if !CanTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// the row exists, so its status moved underneath us
			return nil, fmt.Errorf("%w: %s changed concurrently", ErrInvalidStatusTransition, id)
		}
		return nil, storeErr("update appointment status", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, map[string]any{
		"from": appt.Status,
		"to":   to,
	})

	return updated, nil
}

func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes, medication string) (*Appointment, error) {
	updated, err := s.repo.UpdateNotes(ctx, id, notes, medication)
	if err != nil {
		return nil, storeErr("update appointment notes", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentNotesUpdated, map[string]any{
		"has_notes":      notes != "",
		"has_medication": medication != "",
	})

	return updated, nil
}

// ExpirePendingAppointments cancels pending appointments whose start time has passed.
// It is intended to be called by the worker periodically and returns how many it lapsed.
func (s *Service) ExpirePendingAppointments(ctx context.Context) (int, error) {
	now := s.Now()
	lapsed, err := s.repo.FindLapsedPending(ctx, now)
	if err != nil {
		return 0, storeErr("find lapsed pending appointments", err)
	}

	count := 0
	for _, appt := range lapsed {
		_, err := s.repo.UpdateStatus(ctx, appt.ID, StatusPending, StatusCancelled)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to lapse appointment")
			}
			continue
		}
		count++
		s.logEvent(ctx, appt.ID, EventAppointmentLapsed, map[string]any{
			"start_at": appt.StartAt.Format("2006-01-02T15:04"),
			"reason":   "worker",
		})
	}

	return count, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, storeErr("get appointment", err)
	}
	return detail, nil
}

func (s *Service) ListAppointmentsByTherapist(ctx context.Context, therapistID uuid.UUID) ([]AppointmentDetail, error) {
	if _, err := s.repo.GetTherapist(ctx, therapistID); err != nil {
		return nil, storeErr("load therapist", err)
	}
	list, err := s.repo.ListAppointmentsByTherapist(ctx, therapistID)
	if err != nil {
		return nil, storeErr("list appointments by therapist", err)
	}
	return list, nil
}

func (s *Service) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]AppointmentDetail, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, storeErr("load user", err)
	}
	list, err := s.repo.ListAppointmentsByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list appointments by user", err)
	}
	return list, nil
}

func (s *Service) ListPatients(ctx context.Context, therapistID uuid.UUID) ([]Contact, error) {
	if _, err := s.repo.GetTherapist(ctx, therapistID); err != nil {
		return nil, storeErr("load therapist", err)
	}
	patients, err := s.repo.ListPatientsOfTherapist(ctx, therapistID)
	if err != nil {
		return nil, storeErr("list patients", err)
	}
	return patients, nil
}

func (s *Service) ListTherapists(ctx context.Context) ([]User, error) {
	therapists, err := s.repo.ListTherapists(ctx)
	if err != nil {
		return nil, storeErr("list therapists", err)
	}
	return therapists, nil
}

func (s *Service) GetTherapist(ctx context.Context, id uuid.UUID) (*User, error) {
	t, err := s.repo.GetTherapist(ctx, id)
	if err != nil {
		return nil, storeErr("get therapist", err)
	}
	return t, nil
}

// SetAvailability replaces a therapist's weekly windows.
func (s *Service) SetAvailability(ctx context.Context, therapistID uuid.UUID, avail schedule.Availability) (*User, error) {
	if err := avail.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAvailability, err)
	}

	if err := s.repo.ReplaceAvailability(ctx, therapistID, avail); err != nil {
		return nil, storeErr("replace availability", err)
	}

	s.logger.Info().
		Str("therapist_id", therapistID.String()).
		Str("summary", avail.Summary()).
		Msg("availability updated")

	return s.GetTherapist(ctx, therapistID)
}

// EnsureAdmin upserts the bootstrap admin identity. It is safe to run on every start;
// an empty email means no admin is configured.
func (s *Service) EnsureAdmin(ctx context.Context, name, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	admin, err := s.repo.UpsertUser(ctx, User{Name: name, Email: email, Role: RoleAdmin})
	if err != nil {
		return nil, storeErr("upsert admin", err)
	}

	s.logger.Info().Str("user_id", admin.ID.String()).Str("email", admin.Email).Msg("admin identity ensured")
	return admin, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

// storeErr passes domain sentinels through and marks anything else as a store fault.
func storeErr(op string, err error) error {
	for _, known := range []error{
		ErrUserNotFound,
		ErrTherapistNotFound,
		ErrAppointmentNotFound,
		ErrSlotAlreadyTaken,
		ErrRoleConflict,
		ErrCollaboratorUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return unavailable(op, err)
}
