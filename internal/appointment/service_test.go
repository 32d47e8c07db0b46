package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
	redisclient "github.com/hackgods/autodetail-scheduling/internal/redis"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

type harness struct {
	svc      *Service
	repo     *memRepo
	cal      *fakeCalendar
	notifier *fakeNotifier
	redis    *miniredis.Miniredis
	loc      *time.Location
	now      time.Time
}

// 2030-06-03 is a Monday; "now" is the Saturday before at noon.
func newHarness(t *testing.T) *harness {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	policy := availability.DefaultPolicy(loc)
	gen, err := availability.NewGenerator(policy, 1)
	require.NoError(t, err)

	h := &harness{
		repo:     newMemRepo(),
		cal:      &fakeCalendar{},
		notifier: &fakeNotifier{},
		redis:    mr,
		loc:      loc,
		now:      time.Date(2030, time.June, 1, 12, 0, 0, 0, loc),
	}
	h.svc = NewService(Deps{
		Repo:      h.repo,
		Locker:    redisclient.NewRedisDayLocker(client, 5*time.Second),
		Calendar:  h.cal,
		Notifier:  h.notifier,
		Policy:    policy,
		Generator: gen,
		Validator: availability.NewValidator(policy, availability.DefaultLeadTime),
		Logger:    logging.Discard(),
		Now:       func() time.Time { return h.now },
	})
	return h
}

func (h *harness) monday(hour, minute int) time.Time {
	return time.Date(2030, time.June, 3, hour, minute, 0, 0, h.loc)
}

func (h *harness) request(hour int) availability.Request {
	return availability.Request{
		CustomerName:  "Jamie Rivera",
		CustomerPhone: "555-010-2030",
		CustomerEmail: "jamie@example.com",
		Date:          time.Date(2030, time.June, 3, 0, 0, 0, 0, time.UTC),
		Service:       availability.ServiceExterior,
		Start:         h.monday(hour, 0),
	}
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.svc.Wait(ctx))
}

func TestBookConfirmsAndNotifies(t *testing.T) {
	h := newHarness(t)

	appt, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)
	h.drain(t)

	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.True(t, appt.StartTime.Equal(h.monday(15, 0)))
	assert.True(t, appt.EndTime.Equal(h.monday(16, 30)))

	require.Len(t, h.cal.inserted, 1)
	assert.Equal(t, "Exterior Detail - Jamie Rivera", h.cal.inserted[0].Summary)
	require.NotNil(t, appt.CalendarEventID)
	assert.Equal(t, h.cal.inserted[0].ID, *appt.CalendarEventID)

	require.Len(t, h.notifier.confirmed, 1)
	assert.Equal(t, appt.ID, h.notifier.confirmed[0].ID)
	assert.Equal(t, []string{EventAppointmentCreated}, h.repo.eventTypes())
	assert.False(t, h.redis.Exists("lock:day:2030-06-03"))
}

func TestBookRejectsCalendarConflict(t *testing.T) {
	h := newHarness(t)
	h.cal.busy = []availability.Interval{{Start: h.monday(16, 0), End: h.monday(17, 0)}}

	_, err := h.svc.Book(context.Background(), h.request(15))
	require.ErrorIs(t, err, availability.ErrSlotUnavailable)
	assert.Empty(t, h.cal.inserted)
	assert.Empty(t, h.repo.appts)
}

func TestBookRejectsStoredConflict(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)

	_, err = h.svc.Book(context.Background(), h.request(16))
	require.ErrorIs(t, err, availability.ErrSlotUnavailable)

	// back to back with the first booking
	req := h.request(16)
	req.Start = h.monday(16, 30)
	req.End = h.monday(17, 30)
	_, err = h.svc.Book(context.Background(), req)
	require.NoError(t, err)
	h.drain(t)
}

func TestBookStoresAfterClientDisconnects(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.cal.onInsert = cancel

	appt, err := h.svc.Book(ctx, h.request(15))
	require.NoError(t, err)
	h.drain(t)

	require.Len(t, h.cal.inserted, 1)
	assert.Empty(t, h.cal.deleted)
	stored, err := h.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, h.cal.inserted[0].ID, *stored.CalendarEventID)
}

func TestBookRemovesEventWhenStoreFailsAfterDisconnect(t *testing.T) {
	h := newHarness(t)
	h.repo.createErr = errors.New("connection reset")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.cal.onInsert = cancel

	_, err := h.svc.Book(ctx, h.request(15))
	require.Error(t, err)

	require.Len(t, h.cal.inserted, 1)
	assert.Equal(t, []string{h.cal.inserted[0].ID}, h.cal.deleted)
	assert.Empty(t, h.repo.appts)
	assert.False(t, h.redis.Exists("lock:day:2030-06-03"))
}

func TestBookChecksLeadTimeBeforeCalendar(t *testing.T) {
	h := newHarness(t)
	h.now = h.monday(9, 0)

	_, err := h.svc.Book(context.Background(), h.request(15))
	require.ErrorIs(t, err, availability.ErrInsufficientLeadTime)
	assert.Zero(t, h.cal.busyCalls)
}

func TestBookRejectsOutsideHours(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Book(context.Background(), h.request(18))
	require.ErrorIs(t, err, availability.ErrOutsideBusinessHours)
	assert.Contains(t, err.Error(), "weekday hours are 3 PM - 7 PM")
}

func TestBookDayLocked(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.redis.Set("lock:day:2030-06-03", "someone-else"))

	_, err := h.svc.Book(context.Background(), h.request(15))
	require.ErrorIs(t, err, ErrDayBeingBooked)
}

func TestBookCalendarUnavailable(t *testing.T) {
	h := newHarness(t)
	h.cal.insertErr = errors.New("503 backend error")

	_, err := h.svc.Book(context.Background(), h.request(15))
	require.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.Empty(t, h.repo.appts)

	h.cal.insertErr = nil
	h.cal.busyErr = errors.New("timeout")
	_, err = h.svc.Book(context.Background(), h.request(15))
	require.ErrorIs(t, err, ErrCollaboratorUnavailable)
}

func TestBookSurvivesNotificationFailure(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("sendgrid down")

	appt, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)
	require.NotNil(t, appt)
	h.drain(t)

	assert.Equal(t, []string{EventAppointmentCreated, EventNotificationFailed}, h.repo.eventTypes())
}

func TestBookNotificationOutlivesRequestContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := h.svc.Book(ctx, h.request(15))
	require.NoError(t, err)
	cancel()
	h.drain(t)

	assert.Len(t, h.notifier.confirmed, 1)
}

func TestConcurrentBookingsForOneSlot(t *testing.T) {
	h := newHarness(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Book(context.Background(), h.request(15))
		}(i)
	}
	wg.Wait()
	h.drain(t)

	booked := 0
	for _, err := range errs {
		if err == nil {
			booked++
			continue
		}
		assert.True(t, errors.Is(err, availability.ErrSlotUnavailable) || errors.Is(err, ErrDayBeingBooked), err)
	}
	assert.Equal(t, 1, booked)
	assert.Len(t, h.repo.appts, 1)
}

func TestAvailableSlots(t *testing.T) {
	h := newHarness(t)
	h.cal.busy = []availability.Interval{{Start: h.monday(16, 0), End: h.monday(17, 0)}}
	date := time.Date(2030, time.June, 3, 0, 0, 0, 0, time.UTC)

	slots, err := h.svc.AvailableSlots(context.Background(), date, "")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].Start.Equal(h.monday(15, 0)))
	assert.True(t, slots[1].Start.Equal(h.monday(17, 0)))
	assert.True(t, slots[2].Start.Equal(h.monday(18, 0)))

	// 90 minute service: 17:00 fits, 18:00 would run past close
	slots, err = h.svc.AvailableSlots(context.Background(), date, availability.ServiceExterior)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(h.monday(17, 0)))

	_, err = h.svc.AvailableSlots(context.Background(), date, "ceramic")
	require.ErrorIs(t, err, availability.ErrInvalidInput)
}

func TestAvailableSlotsExcludeStoredAppointments(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Book(context.Background(), h.request(17))
	require.NoError(t, err)
	h.drain(t)

	slots, err := h.svc.AvailableSlots(context.Background(), h.monday(0, 0), "")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Start.Equal(h.monday(15, 0)))
	assert.True(t, slots[1].Start.Equal(h.monday(16, 0)))
}

func TestCancelAppointment(t *testing.T) {
	h := newHarness(t)
	appt, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)

	cancelled, err := h.svc.CancelAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	h.drain(t)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, []string{*appt.CalendarEventID}, h.cal.deleted)
	assert.Len(t, h.notifier.cancelled, 1)
	assert.Contains(t, h.repo.eventTypes(), EventAppointmentCancelled)

	_, err = h.svc.CancelAppointment(context.Background(), appt.ID)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	// the interval is free again
	_, err = h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)
	h.drain(t)
}

func TestCancelKeepsAppointmentWhenCalendarFails(t *testing.T) {
	h := newHarness(t)
	appt, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)
	h.drain(t)

	h.cal.deleteErr = errors.New("unreachable")
	_, err = h.svc.CancelAppointment(context.Background(), appt.ID)
	require.ErrorIs(t, err, ErrCollaboratorUnavailable)

	stored, err := h.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestSendRemindersOncePerAppointment(t *testing.T) {
	h := newHarness(t)
	soon, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)
	h.drain(t)

	h.now = h.monday(8, 0)
	sent, err := h.svc.SendReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, h.notifier.reminded, 1)
	assert.Equal(t, soon.ID, h.notifier.reminded[0].ID)

	sent, err = h.svc.SendReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Contains(t, h.repo.eventTypes(), EventReminderSent)
}

func TestSendRemindersSkipsOutsideWindow(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Book(context.Background(), h.request(15))
	require.NoError(t, err)
	h.drain(t)

	sent, err := h.svc.SendReminders(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestListRangesValidated(t *testing.T) {
	h := newHarness(t)
	from := h.monday(0, 0)

	_, err := h.svc.ListAppointments(context.Background(), from, from)
	require.ErrorIs(t, err, availability.ErrInvalidInput)

	_, err = h.svc.ListCalendarEvents(context.Background(), from, from.Add(-time.Hour))
	require.ErrorIs(t, err, availability.ErrInvalidInput)

	events, err := h.svc.ListCalendarEvents(context.Background(), from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, events)
}
