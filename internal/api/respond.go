package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps booking and admin failures to a status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	if code := availability.ReasonCode(err); code != "" {
		status := http.StatusUnprocessableEntity
		switch code {
		case "invalid_input":
			status = http.StatusBadRequest
		case "slot_unavailable":
			status = http.StatusConflict
		}
		writeError(w, status, code, err.Error())
		return
	}

	switch {
	case errors.Is(err, appointment.ErrDayBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", err.Error())
	case errors.Is(err, calendar.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, "calendar_not_connected", err.Error())
	case errors.Is(err, appointment.ErrCollaboratorUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
