// Package civiltime converts calendar/time-slot selections into UTC instants.
//
// A selection is a calendar date plus a 12-hour time label ("2:30 PM"), always
// interpreted against a single civil zone chosen by the caller's Policy. All
// wire communication uses the resulting UTC instant; display strings are
// derived by formatting the instant back into the same zone.
package civiltime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"callbook/internal/models"
)

// CivilDate is a calendar date with no embedded timezone.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return CivilDate{}, models.ErrInvalidDate
	}
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String returns the date in YYYY-MM-DD form.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// timeLabelPattern matches 12-hour time labels such as "9:00 AM" or "12:15 pm".
var timeLabelPattern = regexp.MustCompile(`^([0-9]{1,2}):([0-9]{2}) ?([AaPp][Mm])$`)

// ParseTimeLabel parses a 12-hour time label into 24-hour clock fields.
// Hour 12 AM maps to 0, 12 PM stays 12, and other PM hours add 12.
func ParseTimeLabel(label string) (hour, minute int, err error) {
	m := timeLabelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, 0, models.ErrInvalidTimeLabel
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, models.ErrInvalidTimeLabel
	}
	pm := strings.EqualFold(m[3], "pm")
	if hour == 12 {
		hour = 0
	}
	if pm {
		hour += 12
	}
	return hour, minute, nil
}

// ToUTC converts a calendar date and 12-hour time label, interpreted as wall
// clock in loc, into an absolute UTC instant.
//
// The conversion discovers the zone offset rather than assuming one: build a
// candidate instant from the naive wall-clock fields as if they were UTC,
// render that instant back in loc, and shift the candidate by the delta
// between the desired and rendered wall clocks. The delta correction runs a
// single iteration, which is exact for any whole-minute offset but can land
// up to an hour off when the requested wall clock falls inside a DST
// transition's skipped or repeated hour (see TestToUTCSpringForwardGap).
func ToUTC(d CivilDate, label string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseTimeLabel(label)
	if err != nil {
		return time.Time{}, err
	}
	candidate := time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC)
	rendered := wallClockAsUTC(candidate.In(loc))
	return candidate.Add(candidate.Sub(rendered)), nil
}

// wallClockAsUTC reinterprets t's wall-clock fields as a UTC instant so two
// wall clocks can be subtracted as times.
func wallClockAsUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Display holds the user-facing rendering of an instant in a civil zone.
type Display struct {
	Date string `json:"date"` // long-form date, e.g. "Monday, 10 March 2025"
	Time string `json:"time"` // 12-hour clock, e.g. "2:30 PM"
	Zone string `json:"zone"` // zone abbreviation at that instant, e.g. "GMT"
}

// ToDisplay formats a UTC instant as date, 12-hour time, and zone abbreviation
// in loc. It is the inverse of ToUTC for instants outside a DST transition.
func ToDisplay(instant time.Time, loc *time.Location) Display {
	local := instant.In(loc)
	return Display{
		Date: local.Format("Monday, 2 January 2006"),
		Time: local.Format("3:04 PM"),
		Zone: local.Format("MST"),
	}
}
