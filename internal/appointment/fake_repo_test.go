package appointment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hackgods/therapy-appointments/internal/schedule"
)

// memRepo is an in-memory Repository. Insert enforces the same per-slot uniqueness as the
// partial unique indexes in Postgres.
type memRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]User
	appts  []Appointment
	events []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[uuid.UUID]User)}
}

func (r *memRepo) addUser(name string, role Role, avail schedule.Availability) User {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := User{
		ID:           uuid.New(),
		Name:         name,
		Email:        uuid.NewString()[:8] + "@example.com",
		Role:         role,
		Availability: avail,
	}
	r.users[u.ID] = u
	return u
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

func (r *memRepo) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memRepo) GetTherapist(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.Role != RoleTherapist {
		return nil, ErrTherapistNotFound
	}
	return &u, nil
}

func (r *memRepo) ListTherapists(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []User
	for _, u := range r.users {
		if u.Role == RoleTherapist {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) UpsertUser(_ context.Context, u User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			if existing.Role != u.Role {
				return nil, ErrRoleConflict
			}
			existing.Name = u.Name
			r.users[id] = existing
			return &existing, nil
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return &u, nil
}

func (r *memRepo) ReplaceAvailability(_ context.Context, id uuid.UUID, avail schedule.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.Role != RoleTherapist {
		return ErrTherapistNotFound
	}
	u.Availability = avail
	r.users[id] = u
	return nil
}

func (r *memRepo) Overlapping(_ context.Context, party Party, id uuid.UUID, start, end time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, a := range r.appts {
		owner := a.TherapistID
		if party == PartyUser {
			owner = a.UserID
		}
		if owner != id || !a.Status.Holds() {
			continue
		}
		if a.StartAt.After(start.Add(-schedule.SlotDuration)) && a.StartAt.Before(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) Insert(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.appts {
		if !existing.Status.Holds() || !existing.StartAt.Equal(a.StartAt) {
			continue
		}
		if existing.TherapistID == a.TherapistID || existing.UserID == a.UserID {
			return nil, ErrSlotAlreadyTaken
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.appts = append(r.appts, a)
	return &a, nil
}

func (r *memRepo) find(id uuid.UUID) int {
	for i, a := range r.appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.find(id)
	if i < 0 || r.appts[i].Status != from {
		return nil, ErrAppointmentNotFound
	}
	r.appts[i].Status = to
	a := r.appts[i]
	return &a, nil
}

func (r *memRepo) UpdateNotes(_ context.Context, id uuid.UUID, notes, medication string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.find(id)
	if i < 0 {
		return nil, ErrAppointmentNotFound
	}
	r.appts[i].Notes = notes
	r.appts[i].Medication = medication
	a := r.appts[i]
	return &a, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.find(id)
	if i < 0 {
		return nil, ErrAppointmentNotFound
	}
	a := r.appts[i]
	return &a, nil
}

func (r *memRepo) contact(id uuid.UUID) *Contact {
	u := r.users[id]
	return &Contact{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Address: u.Address}
}

func (r *memRepo) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.find(id)
	if i < 0 {
		return nil, ErrAppointmentNotFound
	}
	a := r.appts[i]
	return &AppointmentDetail{Appointment: a, User: r.contact(a.UserID), Therapist: r.contact(a.TherapistID)}, nil
}

func (r *memRepo) listDetails(match func(Appointment) bool) []AppointmentDetail {
	var out []AppointmentDetail
	for _, a := range r.appts {
		if match(a) {
			out = append(out, AppointmentDetail{Appointment: a, User: r.contact(a.UserID), Therapist: r.contact(a.TherapistID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

func (r *memRepo) ListAppointmentsByTherapist(_ context.Context, therapistID uuid.UUID) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listDetails(func(a Appointment) bool { return a.TherapistID == therapistID }), nil
}

func (r *memRepo) ListAppointmentsByUser(_ context.Context, userID uuid.UUID) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listDetails(func(a Appointment) bool { return a.UserID == userID }), nil
}

func (r *memRepo) ListPatientsOfTherapist(_ context.Context, therapistID uuid.UUID) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	var out []Contact
	for _, a := range r.appts {
		if a.TherapistID == therapistID && !seen[a.UserID] {
			seen[a.UserID] = true
			out = append(out, *r.contact(a.UserID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) FindLapsedPending(_ context.Context, now time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusPending && !a.StartAt.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
	return nil
}

// brokenDirectory fails every therapist lookup the way an unreachable database would.
type brokenDirectory struct {
	*memRepo
	err error
}

func (b brokenDirectory) GetTherapist(context.Context, uuid.UUID) (*User, error) {
	return nil, b.err
}

// blindLedger never reports overlaps, so only Insert can catch a double booking.
type blindLedger struct {
	*memRepo
}

func (blindLedger) Overlapping(context.Context, Party, uuid.UUID, time.Time, time.Time) ([]Appointment, error) {
	return nil, nil
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) WithSlotLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, keys, fn)
	return args.Error(0)
}
