package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
	"github.com/hackgods/autodetail-scheduling/internal/observability/metrics"
	redisclient "github.com/hackgods/autodetail-scheduling/internal/redis"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

var tracer = otel.Tracer("autodetail.internal.appointment")

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventReminderSent         = "REMINDER_SENT"
	EventNotificationFailed   = "NOTIFICATION_FAILED"
)

// commitTimeout bounds storing a booking once its calendar event exists.
const commitTimeout = 10 * time.Second

var (
	ErrDayBeingBooked          = errors.New("slot is currently being booked, please retry")
	ErrCollaboratorUnavailable = errors.New("calendar or notification service unavailable")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Notifier tells the customer about their appointment.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, a Appointment) error
	AppointmentReminder(ctx context.Context, a Appointment) error
	AppointmentCancelled(ctx context.Context, a Appointment) error
}

type Deps struct {
	Repo      Repository
	Locker    redisclient.Locker
	Calendar  Calendar
	Notifier  Notifier
	Policy    *availability.Policy
	Generator *availability.Generator
	Validator *availability.Validator
	Metrics   *metrics.BookingMetrics
	Logger    *logging.Logger

	// NotifyTimeout bounds each background notification.
	NotifyTimeout time.Duration
	Now           func() time.Time
}

type Service struct {
	repo          Repository
	locker        redisclient.Locker
	calendar      Calendar
	notifier      Notifier
	policy        *availability.Policy
	generator     *availability.Generator
	validator     *availability.Validator
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
	notifyTimeout time.Duration
	now           func() time.Time

	inflight sync.WaitGroup
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NotifyTimeout <= 0 {
		d.NotifyTimeout = 15 * time.Second
	}
	if d.Calendar == nil {
		d.Calendar = NewLocalCalendar(d.Repo, d.Policy.Location())
	}
	return &Service{
		repo:          d.Repo,
		locker:        d.Locker,
		calendar:      d.Calendar,
		notifier:      d.Notifier,
		policy:        d.Policy,
		generator:     d.Generator,
		validator:     d.Validator,
		metrics:       d.Metrics,
		logger:        d.Logger,
		notifyTimeout: d.NotifyTimeout,
		now:           d.Now,
	}
}

// Policy exposes the business hours the service enforces.
func (s *Service) Policy() *availability.Policy {
	return s.policy
}

// AvailableSlots lists the open start times on date. With a service kind the
// slots are as long as that service; without one they use the generator's
// granularity.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time, kind availability.ServiceKind) ([]availability.Slot, error) {
	day := s.policy.Day(date)
	s.metrics.ObserveSlotQuery(availability.KindOf(day).String())

	length := s.generator.Granularity()
	if kind != "" {
		svc, ok := availability.LookupService(kind)
		if !ok {
			return nil, fmt.Errorf("%w: unknown service %q", availability.ErrInvalidInput, kind)
		}
		length = svc.Duration
	}

	busy, err := s.busy(ctx, day)
	if err != nil {
		return nil, err
	}

	slots := []availability.Slot{}
	for slot := range s.generator.SlotsFor(day, busy, length) {
		slots = append(slots, slot)
	}
	return slots, nil
}

// busy merges calendar entries with confirmed appointments for day.
func (s *Service) busy(ctx context.Context, day time.Time) ([]availability.Interval, error) {
	intervals, err := s.calendar.BusyIntervals(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}

	booked, err := s.repo.ListConfirmedBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list confirmed appointments: %w", err)
	}
	for _, a := range booked {
		intervals = append(intervals, a.Interval())
	}
	return intervals, nil
}

// Book validates req and, if accepted, writes it to the calendar and the
// store. The day is locked while the busy snapshot is read and the booking is
// committed, so two requests for the same day cannot both pass the conflict
// check. The confirmation is sent in the background.
func (s *Service) Book(ctx context.Context, req availability.Request) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.service", string(req.Service)))

	booked, err := s.book(ctx, req)
	s.metrics.ObserveBooking(outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("appointment.id", booked.ID.String()))

	s.logger.Info("appointment booked",
		"appointment_id", booked.ID,
		"service", booked.Service,
		"start", booked.StartTime,
	)

	confirmed := *booked
	s.dispatch(ctx, confirmed.ID, "confirmation", func(ctx context.Context) error {
		return s.notifier.AppointmentConfirmed(ctx, confirmed)
	})

	return booked, nil
}

func (s *Service) book(ctx context.Context, req availability.Request) (*Appointment, error) {
	submittedAt := s.now()

	// Requests that fail without looking at the calendar never take the lock.
	if _, err := s.validator.Validate(req, nil, submittedAt); err != nil {
		return nil, err
	}

	var created *Appointment
	day := s.policy.Day(req.Date)

	err := s.locker.WithDayLock(ctx, day, func(lockCtx context.Context) error {
		busy, err := s.busy(lockCtx, day)
		if err != nil {
			return err
		}

		draft, err := s.validator.Validate(req, busy, submittedAt)
		if err != nil {
			return err
		}

		appt := Appointment{
			CustomerName:  draft.Request.CustomerName,
			CustomerPhone: draft.Request.CustomerPhone,
			CustomerEmail: draft.Request.CustomerEmail,
			Service:       draft.Service.Kind,
			StartTime:     draft.Interval.Start,
			EndTime:       draft.Interval.End,
			Status:        StatusConfirmed,
		}

		ev, err := s.calendar.InsertEvent(lockCtx, eventFor(appt, s.policy.Location()))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
		}
		appt.CalendarEventID = &ev.ID

		// The event exists now; a client going away must not strand it.
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(lockCtx), commitTimeout)
		defer cancel()

		stored, err := s.repo.CreateAppointment(commitCtx, appt)
		if err != nil {
			s.discardEvent(commitCtx, ev.ID)
			if errors.Is(err, ErrOverlappingAppointment) {
				return fmt.Errorf("%w: requested time overlaps an existing booking", availability.ErrSlotUnavailable)
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		created = stored

		s.logEvent(commitCtx, stored.ID, EventAppointmentCreated, map[string]any{
			"service":           stored.Service,
			"start_time":        stored.StartTime,
			"end_time":          stored.EndTime,
			"calendar_event_id": ev.ID,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// discardEvent removes a calendar entry whose booking could not be stored.
func (s *Service) discardEvent(ctx context.Context, eventID string) {
	if err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
		s.logger.Error("failed to remove orphaned calendar event", "event_id", eventID, "error", err)
	}
}

func outcome(err error) string {
	if err == nil {
		return "booked"
	}
	if code := availability.ReasonCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, ErrDayBeingBooked):
		return "day_locked"
	case errors.Is(err, ErrCollaboratorUnavailable):
		return "collaborator_unavailable"
	default:
		return "error"
	}
}

// CancelAppointment frees the appointment's interval and removes its calendar
// entry. Only confirmed appointments can be cancelled.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	if appt.CalendarEventID != nil {
		if err := s.calendar.DeleteEvent(ctx, *appt.CalendarEventID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
		}
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusConfirmed, StatusCancelled)
	if errors.Is(err, ErrAppointmentNotFound) {
		// cancelled concurrently
		return nil, ErrInvalidStatusTransition
	}
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{})
	s.logger.Info("appointment cancelled", "appointment_id", updated.ID)

	cancelled := *updated
	s.dispatch(ctx, cancelled.ID, "cancellation", func(ctx context.Context) error {
		return s.notifier.AppointmentCancelled(ctx, cancelled)
	})

	return updated, nil
}

// ListAppointments returns stored appointments of any status in [from, to).
func (s *Service) ListAppointments(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", availability.ErrInvalidInput)
	}
	appts, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ListCalendarEvents returns the shop calendar's entries in [from, to).
func (s *Service) ListCalendarEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: timeMin must be before timeMax", availability.ErrInvalidInput)
	}
	events, err := s.calendar.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}
	return events, nil
}

// SendReminders sends one reminder to every confirmed appointment starting
// within window. It is intended to be called by the worker periodically and
// returns how many reminders went out.
func (s *Service) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	now := s.now()
	due, err := s.repo.FindDueReminders(ctx, now, now.Add(window))
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for _, appt := range due {
		claimed, err := s.repo.MarkReminderSent(ctx, appt.ID, now)
		if err != nil {
			s.logger.Error("failed to claim reminder", "appointment_id", appt.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		if err := s.notifier.AppointmentReminder(ctx, appt); err != nil {
			s.logger.Warn("reminder not delivered", "appointment_id", appt.ID, "error", err)
			s.logEvent(ctx, appt.ID, EventNotificationFailed, map[string]any{
				"kind":  "reminder",
				"error": err.Error(),
			})
			continue
		}

		s.metrics.ObserveReminder()
		s.logEvent(ctx, appt.ID, EventReminderSent, map[string]any{"start_time": appt.StartTime})
		sent++
	}

	return sent, nil
}

// dispatch runs a notification in the background on a context detached from
// the request. Failures are logged and recorded, never returned.
func (s *Service) dispatch(ctx context.Context, appointmentID uuid.UUID, kind string, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(detached, s.notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.logger.Warn("notification not delivered",
				"appointment_id", appointmentID,
				"kind", kind,
				"error", err,
			)
			s.logEvent(ctx, appointmentID, EventNotificationFailed, map[string]any{
				"kind":  kind,
				"error": err.Error(),
			})
		}
	}()
}

// Wait blocks until background notifications finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload", "event_type", eventType, "error", err)
		data = []byte("{}")
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error("failed to insert event log",
			"event_type", eventType,
			"appointment_id", appointmentID,
			"error", err,
		)
	}
}
