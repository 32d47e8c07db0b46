package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Appointment is an accepted booking as stored and as written to the calendar.
type Appointment struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	Service         availability.ServiceKind
	StartTime       time.Time
	EndTime         time.Time
	Status          Status
	CalendarEventID *string
	ReminderSentAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) Interval() availability.Interval {
	return availability.Interval{Start: a.StartTime, End: a.EndTime}
}

// ServiceLabel is the customer facing name of the booked service.
func (a Appointment) ServiceLabel() string {
	if svc, ok := availability.LookupService(a.Service); ok {
		return svc.Label
	}
	return string(a.Service)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
