package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/therapy-appointments/internal/schedule"
)

const (
	pgUniqueViolation = "23505"

	therapistSlotIndex = "appointments_therapist_slot_uniq"
	userSlotIndex      = "appointments_user_slot_uniq"
)

const userColumns = `id, name, email, role, phone, address, specialization, created_at, updated_at`

const appointmentColumns = `id, user_id, therapist_id, start_at, type, status, notes, medication, room_token, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanUser(row pgx.Row, notFound error) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.Phone,
		&u.Address,
		&u.Specialization,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}

	return &u, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.TherapistID,
		&a.StartAt,
		&a.Type,
		&a.Status,
		&a.Notes,
		&a.Medication,
		&a.RoomToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// scanAppointmentWithContact reads appointment columns followed by one joined contact.
func scanAppointmentWithContact(row pgx.Row) (*Appointment, *Contact, error) {
	var a Appointment
	var c Contact

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.TherapistID,
		&a.StartAt,
		&a.Type,
		&a.Status,
		&a.Notes,
		&a.Medication,
		&a.RoomToken,
		&a.CreatedAt,
		&a.UpdatedAt,
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAppointmentNotFound
		}
		return nil, nil, err
	}

	return &a, &c, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func freedStatusValues() []string {
	out := make([]string, len(FreedStatuses))
	for i, s := range FreedStatuses {
		out[i] = string(s)
	}
	return out
}

func (r *PgRepository) loadAvailability(ctx context.Context, therapistIDs []uuid.UUID) (map[uuid.UUID]schedule.Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT therapist_id, day_of_week, start_minute, end_minute
		FROM availability_windows
		WHERE therapist_id = ANY($1)
		ORDER BY therapist_id, position
	`, therapistIDs)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]schedule.Availability, len(therapistIDs))
	for rows.Next() {
		var id uuid.UUID
		var day, start, end int16
		if err := rows.Scan(&id, &day, &start, &end); err != nil {
			return nil, err
		}
		result[id] = append(result[id], schedule.Window{
			Day:   time.Weekday(day),
			Start: schedule.TimeOfDay(start),
			End:   schedule.TimeOfDay(end),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Directory

func (r *PgRepository) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	u, err := scanUser(row, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	if u.Role == RoleTherapist {
		avail, err := r.loadAvailability(ctx, []uuid.UUID{u.ID})
		if err != nil {
			return nil, err
		}
		u.Availability = avail[u.ID]
	}

	return u, nil
}

func (r *PgRepository) GetTherapist(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND role = 'therapist'
	`, id)
	u, err := scanUser(row, ErrTherapistNotFound)
	if err != nil {
		return nil, err
	}

	avail, err := r.loadAvailability(ctx, []uuid.UUID{u.ID})
	if err != nil {
		return nil, err
	}
	u.Availability = avail[u.ID]

	return u, nil
}

func (r *PgRepository) ListTherapists(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'therapist'
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var therapists []User
	var ids []uuid.UUID
	for rows.Next() {
		u, err := scanUser(rows, ErrTherapistNotFound)
		if err != nil {
			return nil, err
		}
		therapists = append(therapists, *u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return therapists, nil
	}

	avail, err := r.loadAvailability(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range therapists {
		therapists[i].Availability = avail[therapists[i].ID]
	}

	return therapists, nil
}

// UpsertUser inserts u or, when the email is already registered with the same role, refreshes
// that row. The role of an existing identity is never changed. The returned user carries the stored id.
func (r *PgRepository) UpsertUser(ctx context.Context, u User) (*User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, role, phone, address, specialization, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET name           = EXCLUDED.name,
		    phone          = COALESCE(EXCLUDED.phone, users.phone),
		    address        = COALESCE(EXCLUDED.address, users.address),
		    specialization = COALESCE(EXCLUDED.specialization, users.specialization),
		    updated_at     = now()
		WHERE users.role = EXCLUDED.role
		RETURNING `+userColumns+`
	`, u.ID, u.Name, u.Email, u.Role, u.Phone, u.Address, u.Specialization)

	// no row back means the conflicting row kept its other role
	user, err := scanUser(row, ErrRoleConflict)
	if errors.Is(err, ErrRoleConflict) {
		return nil, fmt.Errorf("%w: %s", ErrRoleConflict, strings.ToLower(u.Email))
	}
	return user, err
}

// ReplaceAvailability swaps a therapist's weekly windows atomically.
func (r *PgRepository) ReplaceAvailability(ctx context.Context, therapistID uuid.UUID, avail schedule.Availability) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var role Role
	err = tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, therapistID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTherapistNotFound
		}
		return err
	}
	if role != RoleTherapist {
		return ErrTherapistNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE therapist_id = $1`, therapistID); err != nil {
		return fmt.Errorf("clear availability: %w", err)
	}

	for i, w := range avail {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (therapist_id, position, day_of_week, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, therapistID, i, int16(w.Day), int16(w.Start), int16(w.End))
		if err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, therapistID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Ledger

func (r *PgRepository) Overlapping(ctx context.Context, party Party, id uuid.UUID, start, end time.Time) ([]Appointment, error) {
	column := "therapist_id"
	if party == PartyUser {
		column = "user_id"
	}

	// An appointment at s covers [s, s+30m); it intersects [start, end) when s > start-30m and s < end.
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		  AND start_at > $2
		  AND start_at < $3
		  AND status <> ALL($4)
		ORDER BY start_at
	`, id, start.Add(-schedule.SlotDuration), end, freedStatusValues())
	if err != nil {
		return nil, err
	}

	return collectAppointments(rows)
}

func (r *PgRepository) Insert(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, therapist_id, start_at, type, status, notes, medication, room_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.UserID, a.TherapistID, a.StartAt, a.Type, a.Status, a.Notes, a.Medication, a.RoomToken)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			(pgErr.ConstraintName == therapistSlotIndex || pgErr.ConstraintName == userSlotIndex) {
			return nil, fmt.Errorf("%w (%s)", ErrSlotAlreadyTaken, pgErr.ConstraintName)
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes, medication string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET notes = $2,
		    medication = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, notes, medication)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	var d AppointmentDetail
	var u, t Contact

	err := r.pool.QueryRow(ctx, `
		SELECT `+prefixed("a", appointmentColumns)+`,
		       u.id, u.name, u.email, u.phone, u.address,
		       t.id, t.name, t.email, t.phone, t.address
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		JOIN users t ON t.id = a.therapist_id
		WHERE a.id = $1
	`, id).Scan(
		&d.ID, &d.UserID, &d.TherapistID, &d.StartAt, &d.Type, &d.Status,
		&d.Notes, &d.Medication, &d.RoomToken, &d.CreatedAt, &d.UpdatedAt,
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address,
		&t.ID, &t.Name, &t.Email, &t.Phone, &t.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.User = &u
	d.Therapist = &t
	return &d, nil
}

func (r *PgRepository) listDetails(ctx context.Context, sql string, id uuid.UUID, counterpartIsUser bool) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		a, c, err := scanAppointmentWithContact(rows)
		if err != nil {
			return nil, err
		}
		d := AppointmentDetail{Appointment: *a}
		if counterpartIsUser {
			d.User = c
		} else {
			d.Therapist = c
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListAppointmentsByTherapist(ctx context.Context, therapistID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, `
		SELECT `+prefixed("a", appointmentColumns)+`, u.id, u.name, u.email, u.phone, u.address
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		WHERE a.therapist_id = $1
		ORDER BY a.start_at
	`, therapistID, true)
}

func (r *PgRepository) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, `
		SELECT `+prefixed("a", appointmentColumns)+`, t.id, t.name, t.email, t.phone, t.address
		FROM appointments a
		JOIN users t ON t.id = a.therapist_id
		WHERE a.user_id = $1
		ORDER BY a.start_at
	`, userID, false)
}

func (r *PgRepository) ListPatientsOfTherapist(ctx context.Context, therapistID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT u.id, u.name, u.email, u.phone, u.address
		FROM users u
		JOIN appointments a ON a.user_id = u.id
		WHERE a.therapist_id = $1
		ORDER BY u.name, u.id
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindLapsedPending(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND start_at <= $1
		ORDER BY start_at
	`, now)
	if err != nil {
		return nil, err
	}

	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
