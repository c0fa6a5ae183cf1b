package dataset

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
)

// Clock is a wall-clock time as minutes since midnight, 0 through 1439.
type Clock int

const minutesPerDay = 24 * 60

// ClockAt builds a Clock from a 24-hour hour and minute.
func ClockAt(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) Clock {
	return ClockAt(t.Hour(), t.Minute())
}

// ParseClock parses a 12-hour time such as "08:30 AM", "8:30 am" or "1:05PM".
func ParseClock(s string) (Clock, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.Join(strings.Fields(norm), " ")
	if strings.HasSuffix(norm, "AM") || strings.HasSuffix(norm, "PM") {
		head := strings.TrimSpace(norm[:len(norm)-2])
		norm = head + " " + norm[len(norm)-2:]
	}

	t, err := time.Parse("3:04 PM", norm)
	if err != nil {
		return 0, apperrors.NewValidationError("time", fmt.Sprintf("%q is not a 12-hour time like 08:30 AM", s))
	}
	return ClockOf(t), nil
}

// Hour returns the 24-hour hour.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute within the hour.
func (c Clock) Minute() int { return int(c) % 60 }

// Valid reports whether c lies within a single day.
func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

// String formats c the way the routine document stores times, e.g. "08:30 AM".
func (c Clock) String() string {
	h := c.Hour()
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, c.Minute(), meridiem)
}
