package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/therapy-appointments/internal/appointment"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

// BookingService is what the HTTP layer needs from appointment.Service.
type BookingService interface {
	BookAppointment(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	QueryOpenSlots(ctx context.Context, therapistID, date string) (*appointment.DayAvailability, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*appointment.Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes, medication string) (*appointment.Appointment, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	ListAppointmentsByTherapist(ctx context.Context, therapistID uuid.UUID) ([]appointment.AppointmentDetail, error)
	ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]appointment.AppointmentDetail, error)
	ListPatients(ctx context.Context, therapistID uuid.UUID) ([]appointment.Contact, error)

	ListTherapists(ctx context.Context) ([]appointment.User, error)
	GetTherapist(ctx context.Context, id uuid.UUID) (*appointment.User, error)
	SetAvailability(ctx context.Context, therapistID uuid.UUID, avail schedule.Availability) (*appointment.User, error)
}

type RouterConfig struct {
	Service        BookingService
	PostgresPing   PingFunc
	RedisPing      PingFunc
	Logger         zerolog.Logger
	Env            string
	Version        string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PostgresPing, cfg.RedisPing, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		if cfg.RateLimitRPS > 0 {
			r.Use(NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)
		}

		// Therapist endpoints
		r.Get("/therapists", listTherapistsHandler(cfg.Service))
		r.Get("/therapists/{id}", getTherapistHandler(cfg.Service))
		r.Put("/therapists/{id}/availability", setAvailabilityHandler(cfg.Service))
		r.Get("/therapists/{id}/availability/{date}", availabilityHandler(cfg.Service))
		r.Get("/therapists/{id}/appointments", listTherapistAppointmentsHandler(cfg.Service))
		r.Get("/therapists/{id}/patients", listPatientsHandler(cfg.Service))

		// Appointment endpoints
		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
		r.Put("/appointments/{id}/status", updateStatusHandler(cfg.Service))
		r.Put("/appointments/{id}/notes", updateNotesHandler(cfg.Service))

		// User endpoints
		r.Get("/users/{id}/appointments", listUserAppointmentsHandler(cfg.Service))
	})

	return r
}
