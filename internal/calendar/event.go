// Package calendar talks to the shop's Google Calendar: it reads busy time,
// writes confirmed bookings and owns the OAuth credentials that make that possible.
package calendar

import (
	"errors"
	"time"
)

var (
	// ErrNotConnected means no usable OAuth token has been stored yet.
	ErrNotConnected = errors.New("google calendar not connected")
	ErrNoToken      = errors.New("no stored token")
)

// Event is the calendar-neutral view of one calendar entry.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay,omitempty"`
}
