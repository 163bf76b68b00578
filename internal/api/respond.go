package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/therapy-appointments/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Error: code, Detail: detail})
}

func rejectionStatus(reason appointment.RejectionReason) int {
	switch reason {
	case appointment.ReasonUnknownParty:
		return http.StatusNotFound
	case appointment.ReasonTherapistDoubleBooked, appointment.ReasonUserDoubleBooked:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// writeServiceError maps service errors onto status codes. Faults are logged and answered
// without their internals.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := appointment.AsRejection(err); ok {
		writeError(w, rejectionStatus(rej.Reason), string(rej.Reason), rej.Detail)
		return
	}

	switch {
	case errors.Is(err, appointment.ErrSlotAlreadyTaken):
		writeError(w, http.StatusConflict, "slot_already_taken", "this slot was just booked by someone else, please choose another time")
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, appointment.ErrTherapistNotFound):
		writeError(w, http.StatusNotFound, "therapist_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrInvalidAvailability):
		writeError(w, http.StatusBadRequest, "invalid_availability", err.Error())
	case errors.Is(err, appointment.ErrCollaboratorUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("backing service unavailable")
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "a backing service is unavailable, please retry later")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
