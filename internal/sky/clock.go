package sky

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedTime = errors.New("malformed time")

// ClockTime is a time of day in 24-hour form.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (c ClockTime) MinutesOfDay() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClockTime parses a 12-hour clock string such as "06:45 AM".
func ParseClockTime(value string) (ClockTime, error) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return ClockTime{}, fmt.Errorf("%w: %q: expected \"H:MM AM/PM\"", ErrMalformedTime, value)
	}

	parts := strings.Split(fields[0], ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("%w: %q: expected hour and minute", ErrMalformedTime, value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q: hour: %v", ErrMalformedTime, value, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q: minute: %v", ErrMalformedTime, value, err)
	}
	if hour < 0 || hour > 12 {
		return ClockTime{}, fmt.Errorf("%w: %q: hour out of range", ErrMalformedTime, value)
	}

	switch strings.ToUpper(fields[1]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	default:
		return ClockTime{}, fmt.Errorf("%w: %q: unknown meridiem %q", ErrMalformedTime, value, fields[1])
	}

	return newClockTime(hour, minute, value)
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	"15:04",
}

// ClockFromDateTime extracts the hour and minute of a local date-time value.
// No timezone conversion is applied. 12-hour clock strings are accepted too.
func ClockFromDateTime(value string) (ClockTime, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	if c, err := ParseClockTime(trimmed); err == nil {
		return c, nil
	}
	return ClockTime{}, fmt.Errorf("%w: %q: unrecognized date-time", ErrMalformedTime, value)
}

// FormatClock renders t as a 12-hour clock string, the form providers use for
// astronomy data.
func FormatClock(t time.Time) string {
	return t.Format("03:04 PM")
}

func newClockTime(hour, minute int, raw string) (ClockTime, error) {
	if hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("%w: %q: hour out of range", ErrMalformedTime, raw)
	}
	if minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("%w: %q: minute out of range", ErrMalformedTime, raw)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}
