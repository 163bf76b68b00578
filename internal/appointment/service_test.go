package appointment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/therapy-appointments/internal/config"
	redisclient "github.com/hackgods/therapy-appointments/internal/redis"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

// Saturday 2026-10-17 10:00; the following Monday is 2026-10-19.
var saturdayMorning = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func mondayNineToFive() schedule.Availability {
	return schedule.Availability{{Day: time.Monday, Start: schedule.MustTimeOfDay("09:00"), End: schedule.MustTimeOfDay("17:00")}}
}

func newTestService(repo Repository, locker redisclient.Locker, now time.Time) *Service {
	logger := zerolog.New(io.Discard)
	svc := NewService(repo, locker, config.Config{Location: time.UTC}, &logger)
	svc.clock = func() time.Time { return now }
	return svc
}

type fixture struct {
	repo      *memRepo
	svc       *Service
	therapist User
	user      User
}

func newFixture(now time.Time) *fixture {
	repo := newMemRepo()
	f := &fixture{
		repo:      repo,
		therapist: repo.addUser("Dr. Emily Carter", RoleTherapist, mondayNineToFive()),
		user:      repo.addUser("Jane Doe", RoleUser, nil),
	}
	f.svc = newTestService(repo, redisclient.NopLocker{}, now)
	return f
}

func (f *fixture) request(dateTime string) BookingRequest {
	return BookingRequest{
		UserID:      f.user.ID.String(),
		TherapistID: f.therapist.ID.String(),
		DateTime:    dateTime,
		Type:        string(TypeVideoCall),
	}
}

func slotStrings(slots []schedule.TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestQueryOpenSlotsFullMonday(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	day, err := f.svc.QueryOpenSlots(ctx, f.therapist.ID.String(), "2026-10-19")
	require.NoError(t, err)

	assert.True(t, day.Available)
	assert.Equal(t, time.Monday, day.DayOfWeek)
	assert.Equal(t, "09:00 - 17:00", day.AvailabilityWindow())
	assert.Equal(t, 16, day.TotalSlots)
	require.Len(t, day.AvailableSlots, 16)
	assert.Equal(t, "09:00", day.AvailableSlots[0].String())
	assert.Equal(t, "16:30", day.AvailableSlots[15].String())
	assert.Empty(t, day.BookedSlots)

	again, err := f.svc.QueryOpenSlots(ctx, f.therapist.ID.String(), "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, day, again, "repeated query without bookings must not change")
}

func TestQueryOpenSlotsNoWindowThatDay(t *testing.T) {
	f := newFixture(saturdayMorning)

	day, err := f.svc.QueryOpenSlots(context.Background(), f.therapist.ID.String(), "2026-10-20")
	require.NoError(t, err)

	assert.False(t, day.Available)
	assert.Equal(t, "Therapist is not available on Tuesday", day.Message)
	assert.Equal(t, []string{"Monday"}, day.AvailableDays)
	assert.Empty(t, day.AvailableSlots)
}

func TestQueryOpenSlotsRejectsBadInput(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	tests := []struct {
		name        string
		therapistID string
		date        string
		reason      RejectionReason
	}{
		{"malformed date", f.therapist.ID.String(), "19/10/2026", ReasonMalformedDate},
		{"yesterday", f.therapist.ID.String(), "2026-10-16", ReasonInPast},
		{"not a uuid", "nope", "2026-10-19", ReasonUnknownParty},
		{"user is not a therapist", f.user.ID.String(), "2026-10-19", ReasonUnknownParty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.QueryOpenSlots(ctx, tt.therapistID, tt.date)
			rej, ok := AsRejection(err)
			require.True(t, ok, "want rejection, got %v", err)
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestQueryOpenSlotsTodayDropsStartedSlots(t *testing.T) {
	mondayMidMorning := time.Date(2026, 10, 19, 10, 10, 0, 0, time.UTC)
	f := newFixture(mondayMidMorning)

	day, err := f.svc.QueryOpenSlots(context.Background(), f.therapist.ID.String(), "2026-10-19")
	require.NoError(t, err)

	assert.Equal(t, 16, day.TotalSlots)
	require.NotEmpty(t, day.AvailableSlots)
	assert.Equal(t, "10:30", day.AvailableSlots[0].String())
	assert.Len(t, day.AvailableSlots, 13)
}

func TestBookAppointmentClosesSlot(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	appt, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), appt.StartAt)
	assert.True(t, strings.HasPrefix(appt.RoomToken, "therapy-room-"))
	assert.Len(t, appt.RoomToken, len("therapy-room-")+12)
	assert.Equal(t, []string{EventAppointmentBooked}, f.repo.eventTypes())

	day, err := f.svc.QueryOpenSlots(ctx, f.therapist.ID.String(), "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, slotStrings(day.BookedSlots))
	assert.Len(t, day.AvailableSlots, 15)
	assert.Equal(t, "09:30", day.AvailableSlots[0].String())
}

func TestBookAppointmentUserDoubleBooked(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()
	other := f.repo.addUser("Dr. Michael Thompson", RoleTherapist, mondayNineToFive())

	_, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	require.NoError(t, err)

	req := f.request("2026-10-19T09:00")
	req.TherapistID = other.ID.String()
	_, err = f.svc.BookAppointment(ctx, req)

	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonUserDoubleBooked, rej.Reason)
}

func TestBookAppointmentTherapistDoubleBooked(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()
	second := f.repo.addUser("John Roe", RoleUser, nil)

	_, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T11:30"))
	require.NoError(t, err)

	req := f.request("2026-10-19T11:30")
	req.UserID = second.ID.String()
	_, err = f.svc.BookAppointment(ctx, req)

	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonTherapistDoubleBooked, rej.Reason)

	// back to back is fine
	req.DateTime = "2026-10-19T12:00"
	_, err = f.svc.BookAppointment(ctx, req)
	assert.NoError(t, err)
}

func TestBookAppointmentRejections(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		reason RejectionReason
		detail string
	}{
		{"malformed date", func(r *BookingRequest) { r.DateTime = "next monday" }, ReasonMalformedDate, ""},
		{"in the past", func(r *BookingRequest) { r.DateTime = "2026-10-12T09:00" }, ReasonInPast, ""},
		{"exactly now", func(r *BookingRequest) { r.DateTime = "2026-10-17T10:00" }, ReasonInPast, ""},
		{"unknown user", func(r *BookingRequest) { r.UserID = uuid.NewString() }, ReasonUnknownParty, "user"},
		{"therapist id is a user", func(r *BookingRequest) { r.TherapistID = f.user.ID.String() }, ReasonUnknownParty, "therapist"},
		{"invalid type", func(r *BookingRequest) { r.Type = "Carrier Pigeon" }, ReasonInvalidType, ""},
		{"no window that day", func(r *BookingRequest) { r.DateTime = "2026-10-20T09:00" }, ReasonNoAvailabilityThatDay, "Available days: Monday"},
		{"at window end", func(r *BookingRequest) { r.DateTime = "2026-10-19T17:00" }, ReasonOutsideWindow, "09:00 - 17:00"},
		{"before window", func(r *BookingRequest) { r.DateTime = "2026-10-19T08:30" }, ReasonOutsideWindow, ""},
		{"quarter past", func(r *BookingRequest) { r.DateTime = "2026-10-19T09:15" }, ReasonNotSlotAligned, ""},
		{"stray seconds", func(r *BookingRequest) { r.DateTime = "2026-10-19T09:00:30" }, ReasonNotSlotAligned, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("2026-10-19T09:00")
			tt.mutate(&req)

			_, err := f.svc.BookAppointment(ctx, req)
			rej, ok := AsRejection(err)
			require.True(t, ok, "want rejection, got %v", err)
			assert.Equal(t, tt.reason, rej.Reason)
			if tt.detail != "" {
				assert.Contains(t, rej.Detail, tt.detail)
			}
		})
	}

	assert.Empty(t, f.repo.appts, "rejections must not write")
}

func TestBookAppointmentAtWindowStart(t *testing.T) {
	f := newFixture(saturdayMorning)

	appt, err := f.svc.BookAppointment(context.Background(), f.request("2026-10-19 09:00"))
	require.NoError(t, err)
	assert.Equal(t, "09:00", schedule.TimeOfDayOf(appt.StartAt).String())
}

func TestBookAppointmentTodayPastTimeIsInPast(t *testing.T) {
	mondayMidMorning := time.Date(2026, 10, 19, 10, 10, 0, 0, time.UTC)
	f := newFixture(mondayMidMorning)

	_, err := f.svc.BookAppointment(context.Background(), f.request("2026-10-19T10:00"))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonInPast, rej.Reason)

	_, err = f.svc.BookAppointment(context.Background(), f.request("2026-10-19T10:30"))
	assert.NoError(t, err)
}

func TestBookAppointmentZonedInputUsesConfiguredZone(t *testing.T) {
	f := newFixture(saturdayMorning)
	f.svc.validator.loc = time.FixedZone("CEST", 2*60*60)

	// 07:00Z is 09:00 wall clock in the configured zone
	appt, err := f.svc.BookAppointment(context.Background(), f.request("2026-10-19T07:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 9, appt.StartAt.Hour())
}

func TestBookAppointmentSplitShift(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()
	split := f.repo.addUser("Dr. Sophia Lee", RoleTherapist, schedule.Availability{
		{Day: time.Monday, Start: schedule.MustTimeOfDay("14:00"), End: schedule.MustTimeOfDay("17:00")},
		{Day: time.Monday, Start: schedule.MustTimeOfDay("09:00"), End: schedule.MustTimeOfDay("12:00")},
	})

	day, err := f.svc.QueryOpenSlots(ctx, split.ID.String(), "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 12, day.TotalSlots)
	assert.Equal(t, "09:00 - 12:00, 14:00 - 17:00", day.AvailabilityWindow())

	req := f.request("2026-10-19T13:00")
	req.TherapistID = split.ID.String()
	_, err = f.svc.BookAppointment(ctx, req)
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonOutsideWindow, rej.Reason)

	req.DateTime = "2026-10-19T14:00"
	_, err = f.svc.BookAppointment(ctx, req)
	assert.NoError(t, err)
}

func TestCancelledAppointmentFreesSlot(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	appt, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, appt.ID, "cancelled")
	require.NoError(t, err)

	day, err := f.svc.QueryOpenSlots(ctx, f.therapist.ID.String(), "2026-10-19")
	require.NoError(t, err)
	assert.Len(t, day.AvailableSlots, 16)
	assert.Empty(t, day.BookedSlots)

	_, err = f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	assert.NoError(t, err)
}

func TestBookAppointmentLockContention(t *testing.T) {
	f := newFixture(saturdayMorning)
	locker := new(mockLocker)
	f.svc.locker = locker

	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	keys := []string{
		redisclient.SlotKey("therapist", f.therapist.ID, start),
		redisclient.SlotKey("user", f.user.ID, start),
	}
	locker.On("WithSlotLock", mock.Anything, keys, mock.Anything).Return(redisclient.ErrLockNotAcquired)

	_, err := f.svc.BookAppointment(context.Background(), f.request("2026-10-19T09:00"))
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	locker.AssertExpectations(t)
	assert.Empty(t, f.repo.appts)
}

func TestBookAppointmentLockBackendDown(t *testing.T) {
	f := newFixture(saturdayMorning)
	locker := new(mockLocker)
	f.svc.locker = locker
	locker.On("WithSlotLock", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("acquire slot lock: %w: %w", redisclient.ErrLockBackend, errors.New("dial tcp: connection refused")))

	appt, err := f.svc.BookAppointment(context.Background(), f.request("2026-10-19T09:00"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Len(t, f.repo.appts, 1)
	locker.AssertExpectations(t)

	// still guarded by the ledger without the lock
	_, err = f.svc.BookAppointment(context.Background(), f.request("2026-10-19T09:00"))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonTherapistDoubleBooked, rej.Reason)
}

func TestBookAppointmentLockFailureIsUnavailable(t *testing.T) {
	f := newFixture(saturdayMorning)
	locker := new(mockLocker)
	f.svc.locker = locker
	locker.On("WithSlotLock", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("lock: unexpected reply"))

	_, err := f.svc.BookAppointment(context.Background(), f.request("2026-10-19T09:00"))
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.Empty(t, f.repo.appts)
}

func TestBookAppointmentMalformedSkipsLock(t *testing.T) {
	f := newFixture(saturdayMorning)
	locker := new(mockLocker)
	f.svc.locker = locker

	_, err := f.svc.BookAppointment(context.Background(), f.request("garbage"))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonMalformedDate, rej.Reason)
	locker.AssertNotCalled(t, "WithSlotLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookAppointmentStorageCatchesRace(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	_, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	require.NoError(t, err)

	racing := newTestService(blindLedger{f.repo}, redisclient.NopLocker{}, saturdayMorning)
	second := f.repo.addUser("John Roe", RoleUser, nil)
	req := f.request("2026-10-19T09:00")
	req.UserID = second.ID.String()

	_, err = racing.BookAppointment(ctx, req)
	assert.ErrorIs(t, err, ErrSlotAlreadyTaken)
	_, isRejection := AsRejection(err)
	assert.False(t, isRejection)
}

func TestCollaboratorUnavailable(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()
	broken := newTestService(brokenDirectory{memRepo: f.repo, err: errors.New("connection reset by peer")}, redisclient.NopLocker{}, saturdayMorning)

	_, err := broken.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	_, isRejection := AsRejection(err)
	assert.False(t, isRejection)

	_, err = broken.QueryOpenSlots(ctx, f.therapist.ID.String(), "2026-10-19")
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	appt, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T10:00"))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, appt.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	accepted, err := f.svc.UpdateStatus(ctx, appt.ID, "Accepted")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)

	_, err = f.svc.UpdateStatus(ctx, appt.ID, "rejected")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	completed, err := f.svc.UpdateStatus(ctx, appt.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), "accepted")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	assert.Equal(t, []string{
		EventAppointmentBooked,
		EventAppointmentStatusChanged,
		EventAppointmentStatusChanged,
	}, f.repo.eventTypes())
}

func TestUpdateNotes(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	appt, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T10:00"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateNotes(ctx, appt.ID, "Discussed sleep hygiene", "Melatonin 3mg")
	require.NoError(t, err)
	assert.Equal(t, "Discussed sleep hygiene", updated.Notes)
	assert.Equal(t, "Melatonin 3mg", updated.Medication)

	_, err = f.svc.UpdateNotes(ctx, uuid.New(), "x", "")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestExpirePendingAppointments(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	past := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	lapsed, err := f.repo.Insert(ctx, Appointment{UserID: f.user.ID, TherapistID: f.therapist.ID, StartAt: past, Type: TypeInPerson, Status: StatusPending, RoomToken: NewRoomToken()})
	require.NoError(t, err)
	_, err = f.repo.Insert(ctx, Appointment{UserID: f.user.ID, TherapistID: f.therapist.ID, StartAt: past.Add(time.Hour), Type: TypeInPerson, Status: StatusAccepted, RoomToken: NewRoomToken()})
	require.NoError(t, err)
	future, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	require.NoError(t, err)

	n, err := f.svc.ExpirePendingAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.repo.GetAppointmentByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	got, err = f.repo.GetAppointmentByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	assert.Contains(t, f.repo.eventTypes(), EventAppointmentLapsed)
}

func TestExpirePendingAppointmentsNeverLocks(t *testing.T) {
	f := newFixture(saturdayMorning)
	locker := new(mockLocker)
	f.svc.locker = locker

	past := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	_, err := f.repo.Insert(context.Background(), Appointment{UserID: f.user.ID, TherapistID: f.therapist.ID, StartAt: past, Type: TypeInPerson, Status: StatusPending, RoomToken: NewRoomToken()})
	require.NoError(t, err)

	n, err := f.svc.ExpirePendingAppointments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	locker.AssertNotCalled(t, "WithSlotLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestListings(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	_, err := f.svc.BookAppointment(ctx, f.request("2026-10-19T11:00"))
	require.NoError(t, err)
	_, err = f.svc.BookAppointment(ctx, f.request("2026-10-19T09:00"))
	require.NoError(t, err)

	byTherapist, err := f.svc.ListAppointmentsByTherapist(ctx, f.therapist.ID)
	require.NoError(t, err)
	require.Len(t, byTherapist, 2)
	assert.Equal(t, 9, byTherapist[0].StartAt.Hour())
	assert.Equal(t, "Jane Doe", byTherapist[0].User.Name)

	byUser, err := f.svc.ListAppointmentsByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	patients, err := f.svc.ListPatients(ctx, f.therapist.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, f.user.ID, patients[0].ID)

	_, err = f.svc.ListAppointmentsByTherapist(ctx, f.user.ID)
	assert.ErrorIs(t, err, ErrTherapistNotFound)
	_, err = f.svc.ListAppointmentsByUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetAvailability(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	overlapping := schedule.Availability{
		{Day: time.Friday, Start: schedule.MustTimeOfDay("09:00"), End: schedule.MustTimeOfDay("12:00")},
		{Day: time.Friday, Start: schedule.MustTimeOfDay("11:00"), End: schedule.MustTimeOfDay("13:00")},
	}
	_, err := f.svc.SetAvailability(ctx, f.therapist.ID, overlapping)
	assert.ErrorIs(t, err, ErrInvalidAvailability)

	tuesdays := schedule.Availability{{Day: time.Tuesday, Start: schedule.MustTimeOfDay("10:00"), End: schedule.MustTimeOfDay("18:00")}}
	updated, err := f.svc.SetAvailability(ctx, f.therapist.ID, tuesdays)
	require.NoError(t, err)
	assert.Equal(t, "available only on Tuesdays from 10:00 to 18:00", updated.Availability.Summary())

	_, err = f.svc.SetAvailability(ctx, f.user.ID, tuesdays)
	assert.ErrorIs(t, err, ErrTherapistNotFound)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(saturdayMorning)
	ctx := context.Background()

	none, err := f.svc.EnsureAdmin(ctx, "Root", "")
	require.NoError(t, err)
	assert.Nil(t, none)

	first, err := f.svc.EnsureAdmin(ctx, "Root", "Admin@Example.com")
	require.NoError(t, err)
	second, err := f.svc.EnsureAdmin(ctx, "Root", "admin@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, RoleAdmin, second.Role)

	_, err = f.svc.EnsureAdmin(ctx, "Root", "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestEnsureAdminRefusesRoleChange(t *testing.T) {
	f := newFixture(saturdayMorning)

	_, err := f.svc.EnsureAdmin(context.Background(), "Root", f.therapist.Email)
	assert.ErrorIs(t, err, ErrRoleConflict)

	still, err := f.svc.GetTherapist(context.Background(), f.therapist.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleTherapist, still.Role)
	assert.Len(t, still.Availability, 1)
}
