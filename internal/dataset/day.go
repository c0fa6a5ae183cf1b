package dataset

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
)

// Day is a day of the campus week. The zero value is Saturday, the first
// day of the week in the routine.
type Day int

// Days in canonical routine order.
const (
	Saturday Day = iota
	Sunday
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Week lists every day in canonical order, Saturday first.
var Week = [7]Day{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

var bengaliDayNames = [7]string{
	"শনিবার",
	"রবিবার",
	"সোমবার",
	"মঙ্গলবার",
	"বুধবার",
	"বৃহস্পতিবার",
	"শুক্রবার",
}

var englishDayNames = [7]string{
	"Saturday",
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
}

// Valid reports whether d is one of the seven days.
func (d Day) Valid() bool {
	return d >= Saturday && d <= Friday
}

// String returns the English name.
func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return englishDayNames[d]
}

// Bengali returns the name stored in the routine document.
func (d Day) Bengali() string {
	if !d.Valid() {
		return d.String()
	}
	return bengaliDayNames[d]
}

// DayOf maps a Go weekday onto the campus week.
func DayOf(w time.Weekday) Day {
	// time.Sunday == 0, campus week starts on Saturday.
	return Day((int(w) + 1) % 7)
}

// ParseDay accepts a Bengali day name or an English one in any case.
// Three-letter English abbreviations are accepted too.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	for i, name := range bengaliDayNames {
		if s == name {
			return Day(i), nil
		}
	}
	for i, name := range englishDayNames {
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return Day(i), nil
		}
	}
	return 0, apperrors.NewValidationError("day", fmt.Sprintf("unknown day %q", s))
}
