package types

import (
	"math"
	"time"
)

// Day is the granularity of expiration dates.
const Day = 24 * time.Hour

// DateOnly truncates t to midnight UTC of its calendar day in t's own location.
// Expiration dates and "today" are both reduced to this form before comparing.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns ceil((to - from) / 1 day) on date-only values.
func DaysBetween(from, to time.Time) int {
	diff := DateOnly(to).Sub(DateOnly(from))
	return int(math.Ceil(diff.Hours() / 24))
}
