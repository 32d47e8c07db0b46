package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
)

// Calendar is the shop calendar bookings are written to. *calendar.Google
// implements it; LocalCalendar stands in when Google is not configured.
type Calendar interface {
	BusyIntervals(ctx context.Context, day time.Time) ([]availability.Interval, error)
	InsertEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error)
}

var _ Calendar = (*calendar.Google)(nil)

// LocalCalendar is a calendar with no outside entries. Its events are the
// confirmed appointments in the repository.
type LocalCalendar struct {
	repo Repository
	loc  *time.Location
}

func NewLocalCalendar(repo Repository, loc *time.Location) *LocalCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &LocalCalendar{repo: repo, loc: loc}
}

// BusyIntervals reports nothing: the service already reads confirmed
// appointments from the repository.
func (c *LocalCalendar) BusyIntervals(context.Context, time.Time) ([]availability.Interval, error) {
	return nil, nil
}

func (c *LocalCalendar) InsertEvent(_ context.Context, ev calendar.Event) (calendar.Event, error) {
	ev.ID = "local-" + uuid.NewString()
	return ev, nil
}

func (c *LocalCalendar) DeleteEvent(context.Context, string) error {
	return nil
}

func (c *LocalCalendar) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	appts, err := c.repo.ListConfirmedBetween(ctx, timeMin, timeMax)
	if err != nil {
		return nil, fmt.Errorf("list local events: %w", err)
	}

	events := make([]calendar.Event, 0, len(appts))
	for _, a := range appts {
		events = append(events, eventFor(a, c.loc))
	}
	return events, nil
}

// eventFor renders an appointment the way it appears on the shop calendar.
func eventFor(a Appointment, loc *time.Location) calendar.Event {
	ev := calendar.Event{
		Summary: fmt.Sprintf("%s - %s", a.ServiceLabel(), a.CustomerName),
		Description: fmt.Sprintf("Customer: %s\nPhone: %s\nEmail: %s\nService: %s\nTime: %s",
			a.CustomerName, a.CustomerPhone, a.CustomerEmail, a.ServiceLabel(),
			a.StartTime.In(loc).Format("Mon Jan 2, 3:04 PM")),
		Start: a.StartTime,
		End:   a.EndTime,
	}
	if a.CalendarEventID != nil {
		ev.ID = *a.CalendarEventID
	}
	return ev
}
