package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

const testSecret = "test-admin-secret"

type fakeBooking struct {
	policy *availability.Policy

	mu        sync.Mutex
	booked    []availability.Request
	bookErr   error
	slots     []availability.Slot
	slotsErr  error
	gotKind   availability.ServiceKind
	gotFrom   time.Time
	gotTo     time.Time
	appts     []appointment.Appointment
	events    []calendar.Event
	cancelErr error
}

func (f *fakeBooking) Policy() *availability.Policy { return f.policy }

func (f *fakeBooking) AvailableSlots(_ context.Context, _ time.Time, kind availability.ServiceKind) ([]availability.Slot, error) {
	f.gotKind = kind
	return f.slots, f.slotsErr
}

func (f *fakeBooking) Book(_ context.Context, req availability.Request) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = append(f.booked, req)
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &appointment.Appointment{
		ID:            uuid.New(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Service:       req.Service,
		StartTime:     req.Start,
		EndTime:       req.Start.Add(90 * time.Minute),
		Status:        appointment.StatusConfirmed,
	}, nil
}

func (f *fakeBooking) CancelAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &appointment.Appointment{ID: id, Status: appointment.StatusCancelled}, nil
}

func (f *fakeBooking) ListAppointments(_ context.Context, from, to time.Time) ([]appointment.Appointment, error) {
	f.gotFrom, f.gotTo = from, to
	return f.appts, nil
}

func (f *fakeBooking) ListCalendarEvents(_ context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.gotFrom, f.gotTo = from, to
	return f.events, nil
}

type fakeSMS struct {
	to, body string
	err      error
}

func (f *fakeSMS) SendTestSMS(_ context.Context, to, body string) error {
	f.to, f.body = to, body
	return f.err
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

type harness struct {
	booking *fakeBooking
	sms     *fakeSMS
	router  http.Handler
}

func newHarness(t *testing.T, mutate ...func(*RouterConfig)) *harness {
	t.Helper()
	h := &harness{
		booking: &fakeBooking{policy: availability.DefaultPolicy(newYork(t))},
		sms:     &fakeSMS{},
	}
	cfg := RouterConfig{
		Service:        h.booking,
		SMS:            h.sms,
		Logger:         logging.Discard(),
		AdminJWTSecret: testSecret,
		CORSOrigins:    []string{"http://localhost:5173"},
		Gatherer:       prometheus.NewRegistry(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	h.router = NewRouter(cfg)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

var errBoom = errors.New("boom")
