package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/observability/metrics"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

var tracer = otel.Tracer("autodetail.internal.calendar")

// Google is the Google Calendar v3 backed calendar.
type Google struct {
	creds      *Credentials
	calendarID string
	loc        *time.Location
	endpoint   string
	httpClient *http.Client
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
}

type GoogleOption func(*Google)

// WithEndpoint points the client at a different API base URL.
func WithEndpoint(url string) GoogleOption {
	return func(g *Google) { g.endpoint = url }
}

// WithHTTPClient sets the transport used under the OAuth layer.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.httpClient = c }
}

func WithMetrics(m *metrics.BookingMetrics) GoogleOption {
	return func(g *Google) { g.metrics = m }
}

func NewGoogle(creds *Credentials, calendarID string, loc *time.Location, logger *logging.Logger, opts ...GoogleOption) *Google {
	if logger == nil {
		logger = logging.Default()
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	g := &Google{creds: creds, calendarID: calendarID, loc: loc, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) service(ctx context.Context) (*gcal.Service, error) {
	if _, err := g.creds.Token(ctx); err != nil {
		return nil, err
	}

	base := ctx
	if g.httpClient != nil {
		base = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, g.creds.TokenSource(ctx)))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	return gcal.NewService(ctx, opts...)
}

// BusyIntervals returns the time already taken on day. Cancelled events and
// events marked "free" do not block anything.
func (g *Google) BusyIntervals(ctx context.Context, day time.Time) ([]availability.Interval, error) {
	ctx, span := tracer.Start(ctx, "calendar.google.busy_intervals")
	defer span.End()
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, g.loc)
	span.SetAttributes(attribute.String("calendar.day", from.Format("2006-01-02")))

	events, err := g.list(ctx, "busy_intervals", from, from.AddDate(0, 0, 1), true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list events")
		return nil, err
	}

	busy := make([]availability.Interval, 0, len(events))
	for _, ev := range events {
		busy = append(busy, availability.Interval{Start: ev.Start, End: ev.End})
	}
	return busy, nil
}

// ListEvents returns every event overlapping [timeMin, timeMax) ordered by start.
func (g *Google) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	ctx, span := tracer.Start(ctx, "calendar.google.list_events")
	defer span.End()

	events, err := g.list(ctx, "list_events", timeMin, timeMax, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list events")
	}
	return events, err
}

func (g *Google) list(ctx context.Context, op string, timeMin, timeMax time.Time, busyOnly bool) (events []Event, err error) {
	started := time.Now()
	defer func() { g.metrics.ObserveCalendarCall(op, time.Since(started).Seconds(), err) }()

	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(g.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		TimeZone(g.loc.String())

	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if busyOnly && (item.Status == "cancelled" || item.Transparency == "transparent") {
				continue
			}
			ev, err := g.fromGoogle(item)
			if err != nil && busyOnly {
				// dropping it would free time that is really taken
				return fmt.Errorf("event %s: %w", item.Id, err)
			}
			if err != nil {
				g.logger.Warn("skipping calendar event with unreadable times", "event_id", item.Id, "error", err)
				continue
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("google calendar: list events: %w", err)
	}
	return events, nil
}

// InsertEvent writes ev and returns it with the id Google assigned.
func (g *Google) InsertEvent(ctx context.Context, ev Event) (_ Event, err error) {
	ctx, span := tracer.Start(ctx, "calendar.google.insert_event")
	defer span.End()
	started := time.Now()
	defer func() {
		g.metrics.ObserveCalendarCall("insert_event", time.Since(started).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert event")
		}
	}()

	svc, err := g.service(ctx)
	if err != nil {
		return Event{}, err
	}

	created, err := svc.Events.Insert(g.calendarID, g.toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("google calendar: insert event: %w", err)
	}
	ev.ID = created.Id
	span.SetAttributes(attribute.String("calendar.event_id", created.Id))
	g.logger.Info("calendar event created", "event_id", created.Id, "start", ev.Start)
	return ev, nil
}

// DeleteEvent removes an event. Events that are already gone are not an error.
func (g *Google) DeleteEvent(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "calendar.google.delete_event")
	defer span.End()
	span.SetAttributes(attribute.String("calendar.event_id", id))
	started := time.Now()
	defer func() { g.metrics.ObserveCalendarCall("delete_event", time.Since(started).Seconds(), err) }()

	svc, err := g.service(ctx)
	if err != nil {
		return err
	}

	err = svc.Events.Delete(g.calendarID, id).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete event")
		return fmt.Errorf("google calendar: delete event: %w", err)
	}
	return nil
}

func (g *Google) toGoogle(ev Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.In(g.loc).Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.In(g.loc).Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
	}
}

func (g *Google) fromGoogle(item *gcal.Event) (Event, error) {
	start, allDay, err := g.parseTime(item.Start)
	if err != nil {
		return Event{}, err
	}
	end, _, err := g.parseTime(item.End)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		AllDay:      allDay,
	}, nil
}

// parseTime reads a timed or all-day boundary. All-day dates are midnight in
// the business location.
func (g *Google) parseTime(t *gcal.EventDateTime) (time.Time, bool, error) {
	if t == nil {
		return time.Time{}, false, errors.New("missing time")
	}
	if t.DateTime != "" {
		v, err := time.Parse(time.RFC3339, t.DateTime)
		return v, false, err
	}
	if t.Date != "" {
		v, err := time.ParseInLocation("2006-01-02", t.Date, g.loc)
		return v, true, err
	}
	return time.Time{}, false, errors.New("missing time")
}
