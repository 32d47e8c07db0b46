package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
)

type memRepo struct {
	mu        sync.Mutex
	appts     map[uuid.UUID]*Appointment
	events    []EventLog
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{appts: map[uuid.UUID]*Appointment{}}
}

func (r *memRepo) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.appts {
		if existing.Status == StatusConfirmed && existing.Interval().Overlaps(a.Interval()) {
			return nil, ErrOverlappingAppointment
		}
	}
	a.ID = uuid.New()
	a.Status = StatusConfirmed
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.appts[a.ID] = &a
	cp := a
	return &cp, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) list(from, to time.Time, keep func(*Appointment) bool) []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	window := availability.Interval{Start: from, End: to}
	var out []Appointment
	for _, a := range r.appts {
		if a.Interval().Overlaps(window) && keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *memRepo) ListAppointments(_ context.Context, from, to time.Time) ([]Appointment, error) {
	return r.list(from, to, func(*Appointment) bool { return true }), nil
}

func (r *memRepo) ListConfirmedBetween(_ context.Context, from, to time.Time) ([]Appointment, error) {
	return r.list(from, to, func(a *Appointment) bool { return a.Status == StatusConfirmed }), nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (r *memRepo) FindDueReminders(_ context.Context, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && a.ReminderSentAt == nil &&
			!a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.ReminderSentAt != nil {
		return false, nil
	}
	a.ReminderSentAt = &at
	return true, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type fakeCalendar struct {
	mu        sync.Mutex
	busy      []availability.Interval
	busyErr   error
	insertErr error
	deleteErr error
	onInsert  func()
	busyCalls int
	inserted  []calendar.Event
	deleted   []string
}

func (c *fakeCalendar) BusyIntervals(context.Context, time.Time) ([]availability.Interval, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyCalls++
	if c.busyErr != nil {
		return nil, c.busyErr
	}
	return append([]availability.Interval(nil), c.busy...), nil
}

func (c *fakeCalendar) InsertEvent(_ context.Context, ev calendar.Event) (calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return calendar.Event{}, c.insertErr
	}
	ev.ID = uuid.NewString()
	c.inserted = append(c.inserted, ev)
	if c.onInsert != nil {
		c.onInsert()
	}
	return ev, nil
}

func (c *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, id)
	return nil
}

func (c *fakeCalendar) ListEvents(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]calendar.Event(nil), c.inserted...), nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	confirmed []Appointment
	reminded  []Appointment
	cancelled []Appointment
}

func (n *fakeNotifier) record(dst *[]Appointment, a Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	*dst = append(*dst, a)
	return n.err
}

func (n *fakeNotifier) AppointmentConfirmed(_ context.Context, a Appointment) error {
	return n.record(&n.confirmed, a)
}

func (n *fakeNotifier) AppointmentReminder(_ context.Context, a Appointment) error {
	return n.record(&n.reminded, a)
}

func (n *fakeNotifier) AppointmentCancelled(_ context.Context, a Appointment) error {
	return n.record(&n.cancelled, a)
}
