package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate     = errors.New("invalid date, want YYYY-MM-DD")
	ErrInvalidTime     = errors.New("invalid time, want HH:MM")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidView     = errors.New("invalid calendar view")
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Supported slot granularities in minutes, ascending.
var slotSteps = []int{15, 30, 60, 90}

// CalendarView selects the visible range shape.
type CalendarView string

const (
	ViewDay   CalendarView = "day"
	ViewWeek  CalendarView = "week"
	ViewMonth CalendarView = "month"
)

// ToUTCFromLocalDateTime interprets date ("YYYY-MM-DD") plus hhmm ("HH:MM")
// as wall-clock time in the given IANA zone and returns the UTC instant.
// Ambiguous or nonexistent local times around DST transitions resolve the way
// time.Date resolves them for the loaded location.
func ToUTCFromLocalDateTime(date, hhmm, timeZone string) (time.Time, error) {
	loc, err := LoadLocation(timeZone)
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	minute, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(day.Year(), day.Month(), day.Day(), 0, minute, 0, 0, loc)
	return local.UTC(), nil
}

// LocalDateFromUTC projects a UTC instant onto the viewer's calendar day.
func LocalDateFromUTC(instant time.Time, timeZone string) (string, error) {
	loc, err := LoadLocation(timeZone)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(DateLayout), nil
}

// LoadLocation wraps time.LoadLocation with the package error.
func LoadLocation(timeZone string) (*time.Location, error) {
	if timeZone == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timeZone)
	}
	return loc, nil
}

// MinutesToHHMM formats a minute-of-day offset (0–1439) as "HH:MM".
func MinutesToHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 1439 {
		minutes = 1439
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseHHMM parses "HH:MM" into a minute-of-day offset. Longer strings like
// "09:00:00" are accepted by taking the first five characters.
func ParseHHMM(s string) (int, error) {
	if len(s) < 5 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	s = s[:5]
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClampSlotMinutes normalizes arbitrary input to a supported granularity by
// rounding down to the nearest supported value, with a floor of 15.
func ClampSlotMinutes(value int) int {
	out := slotSteps[0]
	for _, step := range slotSteps {
		if value >= step {
			out = step
		}
	}
	return out
}

// ClampWeekStartsOn normalizes first-day-of-week to 0 (Sunday) or 1 (Monday).
func ClampWeekStartsOn(value int) int {
	if value == 1 {
		return 1
	}
	return 0
}

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// VisibleRange computes the half-open [start, end) window a calendar view
// shows for the given local date. The month view covers the full grid: it
// starts on the weekStartsOn weekday at or before the 1st and ends on the
// weekStartsOn weekday at or after the day following the last of the month,
// so leading and trailing days of adjacent months fill whole weeks.
func VisibleRange(view CalendarView, date time.Time, weekStartsOn int) (time.Time, time.Time, error) {
	weekStartsOn = ClampWeekStartsOn(weekStartsOn)
	day := DayStart(date)

	switch view {
	case ViewDay:
		return day, day.AddDate(0, 0, 1), nil

	case ViewWeek:
		start := weekStart(day, weekStartsOn)
		return start, start.AddDate(0, 0, 7), nil

	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		start := weekStart(first, weekStartsOn)
		afterLast := first.AddDate(0, 1, 0)
		end := weekStart(afterLast, weekStartsOn)
		if end.Before(afterLast) {
			end = end.AddDate(0, 0, 7)
		}
		return start, end, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidView, view)
}

// weekStart walks back from day to the configured first weekday.
func weekStart(day time.Time, weekStartsOn int) time.Time {
	offset := (int(day.Weekday()) - weekStartsOn + 7) % 7
	return day.AddDate(0, 0, -offset)
}
