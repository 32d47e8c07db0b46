package availability

import (
	"errors"
	"fmt"
	"time"
)

type DayKind int

const (
	Weekday DayKind = iota
	Weekend
)

func (k DayKind) String() string {
	if k == Weekend {
		return "weekend"
	}
	return "weekday"
}

// KindOf classifies a calendar date. Saturday and Sunday are weekend days.
func KindOf(date time.Time) DayKind {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return Weekend
	default:
		return Weekday
	}
}

// Rule is the bookable window [OpenHour, CloseHour) for one kind of day.
type Rule struct {
	Kind      DayKind
	OpenHour  int
	CloseHour int
}

var (
	DefaultWeekdayRule = Rule{Kind: Weekday, OpenHour: 15, CloseHour: 19}
	DefaultWeekendRule = Rule{Kind: Weekend, OpenHour: 9, CloseHour: 19}
)

var ErrInvalidRule = errors.New("business hours rule must satisfy 0 <= open < close <= 24")

func (r Rule) Validate() error {
	if r.OpenHour < 0 || r.CloseHour > 24 || r.OpenHour >= r.CloseHour {
		return fmt.Errorf("%w: %s %d-%d", ErrInvalidRule, r.Kind, r.OpenHour, r.CloseHour)
	}
	return nil
}

// Describe renders the window the way customers see it, e.g. "weekday hours are 3 PM - 7 PM".
func (r Rule) Describe() string {
	return fmt.Sprintf("%s hours are %s - %s", r.Kind, formatHour(r.OpenHour), formatHour(r.CloseHour))
}

func formatHour(h int) string {
	switch {
	case h == 0 || h == 24:
		return "12 AM"
	case h == 12:
		return "12 PM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

// Policy holds the weekday/weekend rule table and the business time zone.
// It is immutable after construction and safe for concurrent use.
type Policy struct {
	weekday Rule
	weekend Rule
	loc     *time.Location
}

func NewPolicy(weekday, weekend Rule, loc *time.Location) (*Policy, error) {
	weekday.Kind = Weekday
	weekend.Kind = Weekend
	if err := weekday.Validate(); err != nil {
		return nil, err
	}
	if err := weekend.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{weekday: weekday, weekend: weekend, loc: loc}, nil
}

// DefaultPolicy returns the shop's standard hours in loc.
func DefaultPolicy(loc *time.Location) *Policy {
	p, _ := NewPolicy(DefaultWeekdayRule, DefaultWeekendRule, loc)
	return p
}

func (p *Policy) Location() *time.Location {
	return p.loc
}

// Day returns midnight of date's calendar day in the business location. The
// year, month and day are read in date's own location, so a date parsed as UTC
// midnight keeps its calendar day.
func (p *Policy) Day(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
}

func (p *Policy) RuleFor(date time.Time) Rule {
	if KindOf(p.Day(date)) == Weekend {
		return p.weekend
	}
	return p.weekday
}

// IsWithinBusinessHours reports whether [start, end) on date fits the day's
// rule. The start hour must be at or after the opening hour and the end may not
// pass CloseHour:00.
func (p *Policy) IsWithinBusinessHours(date, start, end time.Time) bool {
	day := p.Day(date)
	rule := p.RuleFor(day)

	s, e := start.In(p.loc), end.In(p.loc)
	if !s.Before(e) {
		return false
	}

	startSec, ok := secondsInto(day, s)
	if !ok {
		return false
	}
	endSec, ok := secondsInto(day, e)
	if !ok {
		return false
	}

	return startSec >= rule.OpenHour*3600 && endSec <= rule.CloseHour*3600
}

// secondsInto returns the wall-clock offset of t from the start of day. The
// following midnight is reported as 24:00.
func secondsInto(day, t time.Time) (int, bool) {
	clock := t.Hour()*3600 + t.Minute()*60 + t.Second()
	if sameDate(day, t) {
		return clock, true
	}
	if sameDate(day.AddDate(0, 0, 1), t) && clock == 0 && t.Nanosecond() == 0 {
		return 24 * 3600, true
	}
	return 0, false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
