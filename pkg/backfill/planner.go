package backfill

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Define static errors
var (
	// ErrStartAfterEnd is returned when the requested start date is after the end date
	ErrStartAfterEnd = errors.New("start date is after end date")
	// ErrFutureDate is returned when the requested range contains dates in the future
	ErrFutureDate = errors.New("date is in the future")
	// ErrUnknownWeekday is returned when a weekday filter name is not recognized
	ErrUnknownWeekday = errors.New("unknown weekday")
)

// Plan is an ordered, strictly increasing sequence of target dates.
// It is immutable once computed.
type Plan []time.Time

// weekdayNames maps the CLI weekday filter names to time.Weekday
//
//nolint:gochecknoglobals // Static lookup table
var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseWeekday converts a weekday name (case-insensitive) to a time.Weekday
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, name)
	}

	return day, nil
}

// ParseDate parses a date in the canonical YYYY-MM-DD layout
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}

	return date, nil
}

// Day truncates a timestamp to midnight UTC
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewPlan expands the inclusive [start, end] range into an ascending date
// plan, retaining only dates matching the weekday filter when one is given.
//
// The reference date `today` is computed once at process start and threaded
// in explicitly, never read from ambient state. Any planned date after it is
// rejected up front: the downstream pipeline treats a future forecast start
// date as invalid input, so the plan fails before any log file or state is
// created.
func NewPlan(start, end time.Time, weekdays []time.Weekday, today time.Time) (Plan, error) {
	start, end, today = Day(start), Day(end), Day(today)

	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s",
			ErrStartAfterEnd, start.Format(DateFormat), end.Format(DateFormat))
	}

	filter := make(map[time.Weekday]bool, len(weekdays))
	for _, day := range weekdays {
		filter[day] = true
	}

	var plan Plan
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		if len(filter) > 0 && !filter[current.Weekday()] {
			continue
		}
		if current.After(today) {
			return nil, fmt.Errorf("%w: %s is after %s",
				ErrFutureDate, current.Format(DateFormat), today.Format(DateFormat))
		}
		plan = append(plan, current)
	}

	return plan, nil
}
