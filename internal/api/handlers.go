package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// BookingService is what the handlers need from appointment.Service.
type BookingService interface {
	Policy() *availability.Policy
	AvailableSlots(ctx context.Context, date time.Time, kind availability.ServiceKind) ([]availability.Slot, error)
	Book(ctx context.Context, req availability.Request) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, from, to time.Time) ([]appointment.Appointment, error)
	ListCalendarEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

// SMSTester sends an ad hoc text message.
type SMSTester interface {
	SendTestSMS(ctx context.Context, to, body string) error
}

type Handler struct {
	svc    BookingService
	sms    SMSTester
	logger *logging.Logger
}

func NewHandler(svc BookingService, sms SMSTester, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, sms: sms, logger: logger}
}

func (h *Handler) ListServices(w http.ResponseWriter, _ *http.Request) {
	catalog := availability.Catalog()
	out := make([]ServiceResponse, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, ServiceResponse{
			Value:           string(s.Kind),
			Label:           s.Label,
			DurationMinutes: int(s.Duration / time.Minute),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	policy := h.svc.Policy()
	loc := policy.Location()

	dateStr := r.URL.Query().Get("date")
	date, err := time.ParseInLocation(dateLayout, dateStr, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "date must be YYYY-MM-DD")
		return
	}
	kind := availability.ServiceKind(r.URL.Query().Get("service"))

	slots, err := h.svc.AvailableSlots(r.Context(), date, kind)
	if err != nil {
		h.logFailure(r, "available slots failed", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailableSlotsResponse{
		Date:           dateStr,
		Service:        string(kind),
		Hours:          policy.RuleFor(date).Describe(),
		AvailableSlots: toSlotResponses(slots, loc),
	})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var body BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	req, err := bookingRequest(body, h.svc.Policy().Location())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	appt, err := h.svc.Book(r.Context(), req)
	if err != nil {
		h.logFailure(r, "booking rejected", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BookingResponse{
		Message:     "Appointment created successfully",
		Appointment: toAppointmentResponse(*appt),
	})
}

// bookingRequest turns the wire form into a validator request. Anything that
// does not parse is invalid input; everything else is left to the validator.
func bookingRequest(body BookingRequest, loc *time.Location) (availability.Request, error) {
	req := availability.Request{
		CustomerName:  body.Name,
		CustomerPhone: body.Phone,
		CustomerEmail: body.Email,
		Service:       availability.ServiceKind(strings.TrimSpace(body.Service)),
	}

	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(body.Date), loc)
	if err != nil {
		return req, fmt.Errorf("%w: date must be YYYY-MM-DD", availability.ErrInvalidInput)
	}
	req.Date = date

	if req.Start, err = clockOn(date, body.StartTime, loc); err != nil {
		return req, fmt.Errorf("%w: startTime must be HH:MM", availability.ErrInvalidInput)
	}
	if strings.TrimSpace(body.EndTime) != "" {
		if req.End, err = clockOn(date, body.EndTime, loc); err != nil {
			return req, fmt.Errorf("%w: endTime must be HH:MM", availability.ErrInvalidInput)
		}
	}
	return req, nil
}

// clockOn places an HH:MM wall clock time on date. A full RFC 3339 timestamp
// is accepted as well.
func clockOn(date time.Time, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	clock, err := time.Parse(clockLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

func (h *Handler) ListCalendarEvents(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(w, r, "timeMin", "timeMax")
	if !ok {
		return
	}

	events, err := h.svc.ListCalendarEvents(r.Context(), from, to)
	if err != nil {
		h.logFailure(r, "list calendar events failed", err)
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{Events: events})
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(w, r, "from", "to")
	if !ok {
		return
	}

	appts, err := h.svc.ListAppointments(r.Context(), from, to)
	if err != nil {
		h.logFailure(r, "list appointments failed", err)
		writeServiceError(w, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, AppointmentsResponse{Appointments: out})
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.svc.CancelAppointment(r.Context(), id)
	if err != nil {
		h.logFailure(r, "cancel appointment failed", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
}

func (h *Handler) SendTestSMS(w http.ResponseWriter, r *http.Request) {
	var body TestSMSRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if strings.TrimSpace(body.To) == "" || strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "to and message are required")
		return
	}
	if h.sms == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "sms is not configured")
		return
	}

	if err := h.sms.SendTestSMS(r.Context(), body.To, body.Message); err != nil {
		h.logFailure(r, "test sms failed", err)
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "failed to send test SMS")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Test SMS sent successfully"})
}

// parseRange reads an RFC 3339 or YYYY-MM-DD range from the query string.
// Plain dates are midnight in the business time zone.
func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request, fromKey, toKey string) (time.Time, time.Time, bool) {
	loc := h.svc.Policy().Location()
	q := r.URL.Query()
	from, err := parseInstant(q.Get(fromKey), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fromKey+" must be an RFC 3339 timestamp or YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := parseInstant(q.Get(toKey), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", toKey+" must be an RFC 3339 timestamp or YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseInstant(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, value, loc)
}

func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	level := h.logger.Warn
	if availability.ReasonCode(err) == "" && !errors.Is(err, appointment.ErrDayBeingBooked) {
		level = h.logger.Error
	}
	level(msg, "error", err, "path", r.URL.Path, "request_id", GetRequestID(r.Context()))
}
