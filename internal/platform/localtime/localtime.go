// Package localtime converts between wall-clock local date/times in a named
// zone and absolute instants. Offsets are always resolved for the specific
// calendar date involved, so arithmetic stays correct across DST transitions.
package localtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeInput is returned for malformed date/time strings and unknown
// zone identifiers. Callers should treat it as a non-retryable input error.
type ErrInvalidTimeInput struct {
	Input  string
	Reason string
}

func (e *ErrInvalidTimeInput) Error() string {
	return fmt.Sprintf("invalid time input %q: %s", e.Input, e.Reason)
}

const dateLayout = "2006-01-02"

// LoadZone resolves a named IANA zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, &ErrInvalidTimeInput{Input: name, Reason: "empty zone name"}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ErrInvalidTimeInput{Input: name, Reason: "unknown time zone"}
	}
	return loc, nil
}

// LocalDateKey returns the calendar date ("YYYY-MM-DD") the instant falls on
// in the given zone.
func LocalDateKey(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(dateLayout)
}

// LocalTimeKey returns the wall-clock time of day ("HH:MM") of the instant in
// the given zone.
func LocalTimeKey(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format("15:04")
}

// DayOfWeek returns the weekday of the instant's local date. An instant near
// midnight UTC may fall on a different local day, so the UTC weekday is never
// used directly.
func DayOfWeek(instant time.Time, loc *time.Location) time.Weekday {
	return instant.In(loc).Weekday()
}

// ParseDate parses a "YYYY-MM-DD" calendar date into its components.
func ParseDate(date string) (year int, month time.Month, day int, err error) {
	t, perr := time.Parse(dateLayout, date)
	if perr != nil {
		return 0, 0, 0, &ErrInvalidTimeInput{Input: date, Reason: "want YYYY-MM-DD"}
	}
	return t.Year(), t.Month(), t.Day(), nil
}

// ParseTimeOfDay parses an "HH:MM" wall-clock time. Hours run 0-23 and
// minutes 0-59; "24:00" is not accepted.
func ParseTimeOfDay(tod string) (hour, minute int, err error) {
	parts := strings.Split(tod, ":")
	if len(parts) != 2 {
		return 0, 0, &ErrInvalidTimeInput{Input: tod, Reason: "want HH:MM"}
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, &ErrInvalidTimeInput{Input: tod, Reason: "hour out of range"}
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, &ErrInvalidTimeInput{Input: tod, Reason: "minute out of range"}
	}
	return hour, minute, nil
}

// Combine builds the absolute instant for a wall-clock time on a calendar
// date in the given zone. The zone's offset is resolved for that date, not
// for the moment of evaluation, which is what keeps DST boundaries correct.
func Combine(date, tod string, loc *time.Location) (time.Time, error) {
	year, month, day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseTimeOfDay(tod)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc), nil
}

// MinutesOfDay returns the minute offset since local midnight for an "HH:MM"
// string. Useful for ordering and overlap checks on naive times of day.
func MinutesOfDay(tod string) (int, error) {
	hour, minute, err := ParseTimeOfDay(tod)
	if err != nil {
		return 0, err
	}
	return hour*60 + minute, nil
}

// OverlapsTimeRange reports whether two half-open [start, end) wall-clock
// ranges overlap. Touching edges do not count as overlap. Malformed inputs
// report no overlap.
func OverlapsTimeRange(start1, end1, start2, end2 string) bool {
	s1, err := MinutesOfDay(start1)
	if err != nil {
		return false
	}
	e1, err := MinutesOfDay(end1)
	if err != nil {
		return false
	}
	s2, err := MinutesOfDay(start2)
	if err != nil {
		return false
	}
	e2, err := MinutesOfDay(end2)
	if err != nil {
		return false
	}
	// An empty or inverted range contains no instants.
	if s1 >= e1 || s2 >= e2 {
		return false
	}
	return s1 < e2 && s2 < e1
}
