package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
)

type recordingEmail struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (r *recordingEmail) Send(_ context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type sentSMS struct {
	to   string
	body string
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (r *recordingSMS) SendSMS(_ context.Context, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentSMS{to: to, body: body})
	return r.err
}

var errDown = errors.New("provider down")

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func sampleAppointment(loc *time.Location) appointment.Appointment {
	start := time.Date(2030, time.June, 3, 15, 0, 0, 0, loc)
	return appointment.Appointment{
		ID:            uuid.New(),
		CustomerName:  "Jamie Rivera",
		CustomerPhone: "+15550102030",
		CustomerEmail: "jamie@example.com",
		Service:       availability.ServiceFull,
		StartTime:     start,
		EndTime:       start.Add(3 * time.Hour),
		Status:        appointment.StatusConfirmed,
	}
}
