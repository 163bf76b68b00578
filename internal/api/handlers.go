package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/therapy-appointments/internal/appointment"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

func parseIDParam(w http.ResponseWriter, r *http.Request, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		booking := req.toBooking()
		if booking.UserID == "" || booking.TherapistID == "" || booking.DateTime == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "userId, therapistId and dateTime are required")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), booking)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{Appointment: toAppointmentResponse(*appt)})
	}
}

func availabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := svc.QueryOpenSlots(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "date"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(day))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(*detail))
	}
}

func updateStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func updateNotesHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req UpdateNotesRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.UpdateNotes(r.Context(), id, req.Notes, req.Medication)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func listTherapistAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_therapist_id")
		if !ok {
			return
		}

		list, err := svc.ListAppointmentsByTherapist(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, detailList(list))
	}
}

func listUserAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_user_id")
		if !ok {
			return
		}

		list, err := svc.ListAppointmentsByUser(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, detailList(list))
	}
}

func listPatientsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_therapist_id")
		if !ok {
			return
		}

		patients, err := svc.ListPatients(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]ContactResponse, 0, len(patients))
		for i := range patients {
			resp = append(resp, *toContact(&patients[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listTherapistsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		therapists, err := svc.ListTherapists(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]TherapistResponse, 0, len(therapists))
		for _, t := range therapists {
			resp = append(resp, toTherapistResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getTherapistHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_therapist_id")
		if !ok {
			return
		}

		t, err := svc.GetTherapist(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toTherapistResponse(*t))
	}
}

func setAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id", "invalid_therapist_id")
		if !ok {
			return
		}

		var req SetAvailabilityRequest
		if !decodeBody(w, r, &req) {
			return
		}

		avail := make(schedule.Availability, 0, len(req.Availability))
		for _, wr := range req.Availability {
			win, err := schedule.NewWindow(wr.Day, wr.Start, wr.End)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_availability", err.Error())
				return
			}
			avail = append(avail, win)
		}

		t, err := svc.SetAvailability(r.Context(), id, avail)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toTherapistResponse(*t))
	}
}

func detailList(list []appointment.AppointmentDetail) []AppointmentResponse {
	resp := make([]AppointmentResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, toDetailResponse(d))
	}
	return resp
}
