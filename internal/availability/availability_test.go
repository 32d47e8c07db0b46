package availability

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

// 2030-06-03 is a Monday, 2030-06-08 a Saturday.
var (
	monday   = time.Date(2030, time.June, 3, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2030, time.June, 8, 0, 0, 0, 0, time.UTC)
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// at builds a wall-clock time on date's calendar day in loc.
func at(loc *time.Location, date time.Time, hour, minute int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

func span(loc *time.Location, date time.Time, fromH, fromM, toH, toM int) Interval {
	return Interval{Start: at(loc, date, fromH, fromM), End: at(loc, date, toH, toM)}
}
