package availability

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrOutsideBusinessHours = errors.New("outside business hours")
	ErrSlotUnavailable      = errors.New("slot unavailable")
	ErrInsufficientLeadTime = errors.New("insufficient lead time")
)

const DefaultLeadTime = 24 * time.Hour

const defaultPhoneRegion = "US"

// ReasonCode maps a rejection to its stable machine-readable code. It returns
// an empty string for errors that are not validator rejections.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrOutsideBusinessHours):
		return "outside_business_hours"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrInsufficientLeadTime):
		return "insufficient_lead_time"
	default:
		return ""
	}
}

// Request is a booking request as submitted by a customer. End may be left
// zero, in which case it is derived from the service duration.
type Request struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Date          time.Time
	Service       ServiceKind
	Start         time.Time
	End           time.Time
}

// Draft is an accepted request, ready to be written to the calendar.
type Draft struct {
	Request  Request
	Service  Service
	Interval Interval
}

type Validator struct {
	policy   *Policy
	leadTime time.Duration
}

func NewValidator(policy *Policy, leadTime time.Duration) *Validator {
	if leadTime < 0 {
		leadTime = 0
	}
	return &Validator{policy: policy, leadTime: leadTime}
}

func (v *Validator) LeadTime() time.Duration {
	return v.leadTime
}

// Validate decides a single request against a snapshot of the day's bookings.
// It stops at the first failing check and reports exactly one reason. Once the
// requested start is known the lead time is checked first, then the customer
// fields, business hours and conflicts in that order. A short-notice request
// that is also outside business hours reports ErrInsufficientLeadTime.
func (v *Validator) Validate(req Request, existing []Interval, submittedAt time.Time) (Draft, error) {
	if req.Date.IsZero() || req.Start.IsZero() {
		return Draft{}, fmt.Errorf("%w: date and start time are required", ErrInvalidInput)
	}

	if req.Start.Sub(submittedAt) < v.leadTime {
		return Draft{}, fmt.Errorf("%w: appointments must be scheduled at least %s in advance",
			ErrInsufficientLeadTime, formatLeadTime(v.leadTime))
	}

	draft, err := v.complete(req)
	if err != nil {
		return Draft{}, err
	}

	if !v.policy.IsWithinBusinessHours(req.Date, draft.Interval.Start, draft.Interval.End) {
		rule := v.policy.RuleFor(req.Date)
		return Draft{}, fmt.Errorf("%w: %s", ErrOutsideBusinessHours, rule.Describe())
	}

	if taken, ok := FirstConflict(existing, draft.Interval); ok {
		loc := v.policy.Location()
		return Draft{}, fmt.Errorf("%w: requested time overlaps an existing booking from %s to %s",
			ErrSlotUnavailable, taken.Start.In(loc).Format("15:04"), taken.End.In(loc).Format("15:04"))
	}

	return draft, nil
}

func (v *Validator) complete(req Request) (Draft, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)

	switch {
	case req.CustomerName == "":
		return Draft{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case req.CustomerPhone == "":
		return Draft{}, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	case req.CustomerEmail == "":
		return Draft{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	case req.Service == "":
		return Draft{}, fmt.Errorf("%w: service is required", ErrInvalidInput)
	}

	if !validPhone(req.CustomerPhone) {
		return Draft{}, fmt.Errorf("%w: phone %q is not a valid phone number", ErrInvalidInput, req.CustomerPhone)
	}
	if !validEmail(req.CustomerEmail) {
		return Draft{}, fmt.Errorf("%w: email %q is not a valid address", ErrInvalidInput, req.CustomerEmail)
	}

	svc, ok := LookupService(req.Service)
	if !ok {
		return Draft{}, fmt.Errorf("%w: unknown service %q", ErrInvalidInput, req.Service)
	}

	if !sameDate(v.policy.Day(req.Date), req.Start.In(v.policy.Location())) {
		return Draft{}, fmt.Errorf("%w: start time is not on the requested date", ErrInvalidInput)
	}

	end := req.End
	if end.IsZero() {
		end = req.Start.Add(svc.Duration)
	}
	iv, err := NewInterval(req.Start, end)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	req.End = end

	return Draft{Request: req, Service: svc, Interval: iv}, nil
}

// validPhone accepts a number with a plausible length for its country.
// Numbers without a country code are read as US numbers.
func validPhone(phone string) bool {
	num, err := phonenumbers.Parse(phone, defaultPhoneRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumberWithReason(num) == phonenumbers.IS_POSSIBLE
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}

func formatLeadTime(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
