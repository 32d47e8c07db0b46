package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrOverlappingAppointment is raised by the store when a confirmed
	// appointment already covers part of the interval.
	ErrOverlappingAppointment = errors.New("appointment overlaps a confirmed appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Appointments of any status overlapping [from, to), ordered by start.
	ListAppointments(ctx context.Context, from, to time.Time) ([]Appointment, error)
	// Confirmed appointments overlapping [from, to), used for conflict checks.
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)

	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Reminder worker
	FindDueReminders(ctx context.Context, from, to time.Time) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
