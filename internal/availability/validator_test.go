package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest(loc *time.Location) Request {
	return Request{
		CustomerName:  "Jamie Rivera",
		CustomerPhone: "+1 (555) 010-2030",
		CustomerEmail: "jamie@example.com",
		Date:          monday,
		Service:       ServiceExterior,
		Start:         at(loc, monday, 15, 0),
	}
}

// submitted two days before the requested Monday.
func submittedAt(loc *time.Location) time.Time {
	return at(loc, monday.AddDate(0, 0, -2), 12, 0)
}

func TestValidateAccepts(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	draft, err := v.Validate(validRequest(loc), nil, submittedAt(loc))
	require.NoError(t, err)

	assert.Equal(t, ServiceExterior, draft.Service.Kind)
	assert.Equal(t, at(loc, monday, 15, 0), draft.Interval.Start)
	assert.Equal(t, at(loc, monday, 16, 30), draft.Interval.End)
	assert.Equal(t, draft.Interval.End, draft.Request.End)
}

func TestValidateUsesExplicitEnd(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	req := validRequest(loc)
	req.End = at(loc, monday, 16, 0)
	draft, err := v.Validate(req, nil, submittedAt(loc))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, draft.Interval.Duration())
}

func TestValidateInvalidInput(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing name", func(r *Request) { r.CustomerName = "  " }},
		{"missing phone", func(r *Request) { r.CustomerPhone = "" }},
		{"missing email", func(r *Request) { r.CustomerEmail = "" }},
		{"missing service", func(r *Request) { r.Service = "" }},
		{"short phone", func(r *Request) { r.CustomerPhone = "555-1234" }},
		{"letters in phone", func(r *Request) { r.CustomerPhone = "CALL-ME" }},
		{"long phone", func(r *Request) { r.CustomerPhone = "+1 555 010 20301" }},
		{"bad email", func(r *Request) { r.CustomerEmail = "jamie.example.com" }},
		{"display name email", func(r *Request) { r.CustomerEmail = "Jamie <jamie@example.com>" }},
		{"unknown service", func(r *Request) { r.Service = "ceramic" }},
		{"end before start", func(r *Request) { r.End = at(loc, monday, 14, 0) }},
		{"start on another day", func(r *Request) { r.Start = at(loc, monday.AddDate(0, 0, 1), 15, 0) }},
		{"missing start", func(r *Request) { r.Start = time.Time{} }},
		{"missing date", func(r *Request) { r.Date = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(loc)
			tt.mutate(&req)
			_, err := v.Validate(req, nil, submittedAt(loc))
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, "invalid_input", ReasonCode(err))
		})
	}
}

func TestValidateAcceptsPhoneFormats(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	for _, phone := range []string{"5550102030", "555.010.2030", "+15550102030", "+44 20 7946 0958"} {
		req := validRequest(loc)
		req.CustomerPhone = phone
		_, err := v.Validate(req, nil, submittedAt(loc))
		assert.NoError(t, err, phone)
	}
}

func TestValidateShortNoticeOutsideHours(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	req := validRequest(loc)
	req.Start = at(loc, monday, 9, 0)
	_, err := v.Validate(req, nil, at(loc, monday.AddDate(0, 0, -1), 12, 0))
	require.ErrorIs(t, err, ErrInsufficientLeadTime)
	assert.NotErrorIs(t, err, ErrOutsideBusinessHours)
}

func TestValidateOutsideBusinessHoursNamesRule(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	req := validRequest(loc)
	req.Start = at(loc, monday, 18, 0) // exterior detail would end at 19:30
	_, err := v.Validate(req, nil, submittedAt(loc))
	require.ErrorIs(t, err, ErrOutsideBusinessHours)
	assert.Contains(t, err.Error(), "weekday hours are 3 PM - 7 PM")

	req = validRequest(loc)
	req.Date = saturday
	req.Start = at(loc, saturday, 8, 0)
	_, err = v.Validate(req, nil, submittedAt(loc))
	require.ErrorIs(t, err, ErrOutsideBusinessHours)
	assert.Contains(t, err.Error(), "weekend hours are 9 AM - 7 PM")
}

func TestValidateSlotUnavailable(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	existing := []Interval{span(loc, monday, 16, 0, 17, 0)}
	_, err := v.Validate(validRequest(loc), existing, submittedAt(loc))
	require.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Contains(t, err.Error(), "16:00 to 17:00")
	assert.Equal(t, "slot_unavailable", ReasonCode(err))
}

func TestValidateInsufficientLeadTime(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	justBefore := at(loc, monday.AddDate(0, 0, -1), 15, 30)

	_, err := v.Validate(validRequest(loc), nil, justBefore)
	require.ErrorIs(t, err, ErrInsufficientLeadTime)
	assert.Contains(t, err.Error(), "24 hours")

	// Other defects do not mask the lead time rejection.
	req := validRequest(loc)
	req.CustomerEmail = "not-an-email"
	req.Start = at(loc, monday, 10, 0)
	_, err = v.Validate(req, []Interval{span(loc, monday, 10, 0, 11, 0)}, justBefore)
	require.ErrorIs(t, err, ErrInsufficientLeadTime)

	exactly := at(loc, monday.AddDate(0, 0, -1), 15, 0)
	_, err = v.Validate(validRequest(loc), nil, exactly)
	require.NoError(t, err)
}

func TestValidateHoursCheckedBeforeConflicts(t *testing.T) {
	loc := newYork(t)
	v := NewValidator(DefaultPolicy(loc), DefaultLeadTime)

	req := validRequest(loc)
	req.Start = at(loc, monday, 14, 0)
	existing := []Interval{span(loc, monday, 14, 0, 16, 0)}

	_, err := v.Validate(req, existing, submittedAt(loc))
	require.ErrorIs(t, err, ErrOutsideBusinessHours)
	assert.NotErrorIs(t, err, ErrSlotUnavailable)
}

func TestReasonCodeUnknown(t *testing.T) {
	assert.Equal(t, "", ReasonCode(nil))
	assert.Equal(t, "outside_business_hours", ReasonCode(ErrOutsideBusinessHours))
	assert.Equal(t, "insufficient_lead_time", ReasonCode(ErrInsufficientLeadTime))
}
