package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
)

// BookingRequest is the body of POST /api/calendar/events. Date is
// YYYY-MM-DD, times are HH:MM wall clock in the business time zone.
type BookingRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime,omitempty"`
	Service   string `json:"service"`
}

type BookingResponse struct {
	Message     string              `json:"message"`
	Appointment AppointmentResponse `json:"appointment"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	Service         string     `json:"service"`
	ServiceLabel    string     `json:"serviceLabel"`
	Status          string     `json:"status"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	CalendarEventID *string    `json:"calendarEventId,omitempty"`
	ReminderSentAt  *time.Time `json:"reminderSentAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		Name:            a.CustomerName,
		Phone:           a.CustomerPhone,
		Email:           a.CustomerEmail,
		Service:         string(a.Service),
		ServiceLabel:    a.ServiceLabel(),
		Status:          string(a.Status),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		CalendarEventID: a.CalendarEventID,
		ReminderSentAt:  a.ReminderSentAt,
		CreatedAt:       a.CreatedAt,
	}
}

type SlotResponse struct {
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

type AvailableSlotsResponse struct {
	Date           string         `json:"date"`
	Service        string         `json:"service,omitempty"`
	Hours          string         `json:"hours"`
	AvailableSlots []SlotResponse `json:"availableSlots"`
}

func toSlotResponses(slots []availability.Slot, loc *time.Location) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			StartTime: s.Start.In(loc).Format(clockLayout),
			EndTime:   s.End.In(loc).Format(clockLayout),
			Start:     s.Start,
			End:       s.End,
		})
	}
	return out
}

type ServiceResponse struct {
	Value           string `json:"value"`
	Label           string `json:"label"`
	DurationMinutes int    `json:"durationMinutes"`
}

type EventsResponse struct {
	Events []calendar.Event `json:"events"`
}

type AppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type TestSMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
