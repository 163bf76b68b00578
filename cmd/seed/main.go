package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/therapy-appointments/internal/appointment"
	"github.com/hackgods/therapy-appointments/internal/config"
	"github.com/hackgods/therapy-appointments/internal/db"
	"github.com/hackgods/therapy-appointments/internal/logging"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

type demoTherapist struct {
	name           string
	email          string
	specialization string
	day            time.Weekday
	start, end     string
}

var demoTherapists = []demoTherapist{
	{"Dr. Emily Carter", "emily.carter@example.com", "Clinical Psychologist", time.Monday, "09:00", "17:00"},
	{"Dr. Michael Thompson", "michael.thompson@example.com", "Counseling Psychologist", time.Tuesday, "10:00", "18:00"},
	{"Dr. Sophia Lee", "sophia.lee@example.com", "Child & Adolescent Psychiatrist", time.Wednesday, "08:00", "16:00"},
}

var specializations = []string{
	"Clinical Psychologist",
	"Counseling Psychologist",
	"Psychiatrist",
	"Marriage & Family Therapist",
	"Addiction Counselor",
	"Trauma Specialist",
	"Cognitive Behavioral Therapist",
	"Grief Counselor",
}

func main() {
	logger := logging.New("dev", "info", "seed")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	extraTherapists := envInt("SEED_THERAPISTS", 12)
	users := envInt("SEED_USERS", 500)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	repo := appointment.NewPgRepository(pool)

	if err := seedDemoTherapists(ctx, repo, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed demo therapists")
	}
	if err := seedFakeTherapists(ctx, repo, extraTherapists, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed therapists")
	}
	if err := seedUsers(ctx, pool, users, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed users")
	}

	logger.Info().Msg("seed complete")
}

// seedDemoTherapists is idempotent: the email is the natural key and availability is replaced.
func seedDemoTherapists(ctx context.Context, repo *appointment.PgRepository, logger zerolog.Logger) error {
	for _, d := range demoTherapists {
		specialty := d.specialization
		t, err := repo.UpsertUser(ctx, appointment.User{
			Name:           d.name,
			Email:          d.email,
			Role:           appointment.RoleTherapist,
			Specialization: &specialty,
		})
		if err != nil {
			return fmt.Errorf("upsert %s: %w", d.email, err)
		}

		w, err := schedule.NewWindow(d.day.String(), d.start, d.end)
		if err != nil {
			return err
		}
		if err := repo.ReplaceAvailability(ctx, t.ID, schedule.Availability{w}); err != nil {
			return fmt.Errorf("availability for %s: %w", d.email, err)
		}

		logger.Info().Str("name", d.name).Str("availability", schedule.Availability{w}.Summary()).Msg("demo therapist ready")
	}
	return nil
}

func seedFakeTherapists(ctx context.Context, repo *appointment.PgRepository, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding therapists")

	for i := 0; i < count; i++ {
		specialty := specializations[gofakeit.Number(0, len(specializations)-1)]
		phone := gofakeit.Phone()

		t, err := repo.UpsertUser(ctx, appointment.User{
			Name:           "Dr. " + gofakeit.Name(),
			Email:          strings.ToLower(gofakeit.Email()),
			Role:           appointment.RoleTherapist,
			Phone:          &phone,
			Specialization: &specialty,
		})
		if errors.Is(err, appointment.ErrRoleConflict) {
			logger.Warn().Err(err).Msg("generated email already belongs to another identity, skipping")
			continue
		}
		if err != nil {
			return err
		}

		avail := randomAvailability()
		if err := repo.ReplaceAvailability(ctx, t.ID, avail); err != nil {
			return err
		}
	}

	logger.Info().Msg("therapists seeded")
	return nil
}

// randomAvailability picks one to three weekdays, each with a single aligned window of 4 to 8 hours.
func randomAvailability() schedule.Availability {
	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	gofakeit.ShuffleAnySlice(days)

	n := gofakeit.Number(1, 3)
	avail := make(schedule.Availability, 0, n)
	for _, day := range days[:n] {
		startHour := gofakeit.Number(7, 11)
		length := gofakeit.Number(4, 8)
		avail = append(avail, schedule.Window{
			Day:   day,
			Start: schedule.TimeOfDay(startHour * 60),
			End:   schedule.TimeOfDay((startHour + length) * 60),
		})
	}
	return avail
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding users")

	const batchSize = 250

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, role, phone, address, created_at, updated_at)
				VALUES ($1, $2, lower($3), 'user', $4, $5, now(), now())
				ON CONFLICT (email) DO NOTHING
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), gofakeit.Street()+", "+gofakeit.City())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("done", end).Int("total", count).Msg("users seeded")
	}

	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
