package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/therapy-appointments/internal/appointment"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

const wireDateTime = "2006-01-02T15:04:05"

// CreateAppointmentRequest accepts both the documented field names and the short legacy ones
// (user, therapist, date) older clients still send.
type CreateAppointmentRequest struct {
	UserID      string `json:"userId"`
	TherapistID string `json:"therapistId"`
	DateTime    string `json:"dateTime"`
	Type        string `json:"type"`

	User      string `json:"user,omitempty"`
	Therapist string `json:"therapist,omitempty"`
	Date      string `json:"date,omitempty"`
}

func (r CreateAppointmentRequest) toBooking() appointment.BookingRequest {
	return appointment.BookingRequest{
		UserID:      firstNonEmpty(r.UserID, r.User),
		TherapistID: firstNonEmpty(r.TherapistID, r.Therapist),
		DateTime:    firstNonEmpty(r.DateTime, r.Date),
		Type:        r.Type,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateNotesRequest struct {
	Notes      string `json:"notes"`
	Medication string `json:"medication"`
}

type WindowRequest struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type SetAvailabilityRequest struct {
	Availability []WindowRequest `json:"availability"`
}

type ContactResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   *string   `json:"phone,omitempty"`
	Address *string   `json:"address,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	TherapistID uuid.UUID        `json:"therapistId"`
	DateTime    string           `json:"dateTime"`
	EndTime     string           `json:"endTime"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Notes       string           `json:"notes"`
	Medication  string           `json:"medication"`
	RoomToken   string           `json:"roomToken"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	User        *ContactResponse `json:"user,omitempty"`
	Therapist   *ContactResponse `json:"therapist,omitempty"`
}

type BookingResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
}

type TherapistResponse struct {
	ID                  uuid.UUID         `json:"id"`
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	Phone               *string           `json:"phone,omitempty"`
	Specialization      *string           `json:"specialization,omitempty"`
	Availability        []schedule.Window `json:"availability"`
	AvailabilitySummary string            `json:"availabilitySummary"`
}

// OpenSlotsResponse is the answer for a day the therapist works.
type OpenSlotsResponse struct {
	Available          bool                 `json:"available"`
	Date               string               `json:"date"`
	DayOfWeek          string               `json:"dayOfWeek"`
	AvailabilityWindow string               `json:"availabilityWindow"`
	Windows            []schedule.Window    `json:"windows"`
	AvailableSlots     []schedule.TimeOfDay `json:"availableSlots"`
	BookedSlots        []schedule.TimeOfDay `json:"bookedSlots"`
	TotalSlots         int                  `json:"totalSlots"`
	AvailableCount     int                  `json:"availableCount"`
}

// UnavailableDayResponse is informational, not an error.
type UnavailableDayResponse struct {
	Available     bool     `json:"available"`
	Date          string   `json:"date"`
	DayOfWeek     string   `json:"dayOfWeek"`
	Message       string   `json:"message"`
	AvailableDays []string `json:"availableDays"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func toContact(c *appointment.Contact) *ContactResponse {
	if c == nil {
		return nil
	}
	return &ContactResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		TherapistID: a.TherapistID,
		DateTime:    a.StartAt.Format(wireDateTime),
		EndTime:     a.EndAt().Format(wireDateTime),
		Type:        string(a.Type),
		Status:      string(a.Status),
		Notes:       a.Notes,
		Medication:  a.Medication,
		RoomToken:   a.RoomToken,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toDetailResponse(d appointment.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(d.Appointment)
	resp.User = toContact(d.User)
	resp.Therapist = toContact(d.Therapist)
	return resp
}

func toTherapistResponse(u appointment.User) TherapistResponse {
	avail := []schedule.Window(u.Availability)
	if avail == nil {
		avail = []schedule.Window{}
	}
	return TherapistResponse{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Phone:               u.Phone,
		Specialization:      u.Specialization,
		Availability:        avail,
		AvailabilitySummary: u.Availability.Summary(),
	}
}

func toAvailabilityResponse(d *appointment.DayAvailability) any {
	date := d.Date.Format(schedule.DateLayout)
	if !d.Available {
		days := d.AvailableDays
		if days == nil {
			days = []string{}
		}
		return UnavailableDayResponse{
			Available:     false,
			Date:          date,
			DayOfWeek:     d.DayOfWeek.String(),
			Message:       d.Message,
			AvailableDays: days,
		}
	}

	return OpenSlotsResponse{
		Available:          true,
		Date:               date,
		DayOfWeek:          d.DayOfWeek.String(),
		AvailabilityWindow: d.AvailabilityWindow(),
		Windows:            d.Windows,
		AvailableSlots:     nonNilSlots(d.AvailableSlots),
		BookedSlots:        nonNilSlots(d.BookedSlots),
		TotalSlots:         d.TotalSlots,
		AvailableCount:     len(d.AvailableSlots),
	}
}

func nonNilSlots(s []schedule.TimeOfDay) []schedule.TimeOfDay {
	if s == nil {
		return []schedule.TimeOfDay{}
	}
	return s
}
