package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid_date_range")

const (
	// DefaultRangeDays is the span charted when no range is given.
	DefaultRangeDays = 10
	// MaxRangeDays bounds the days walked by one request.
	MaxRangeDays = 366
)

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// LastDays is the n calendar days ending on today's date.
func LastDays(today time.Time, n int) DateRange {
	to := dateOf(today)
	return DateRange{From: to.AddDate(0, 0, -(n - 1)), To: to}
}

// ParseDateRange reads "YYYY-MM-DD" bounds. When either is blank the range
// falls back to the DefaultRangeDays ending today.
func ParseDateRange(from, to string, today time.Time) (DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return LastDays(today, DefaultRangeDays), nil
	}
	f, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: from %q", ErrInvalidDateRange, from)
	}
	t, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: to %q", ErrInvalidDateRange, to)
	}
	r := DateRange{From: f, To: t}
	if t.Before(f) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, from, to)
	}
	if r.Days() > MaxRangeDays {
		return DateRange{}, fmt.Errorf("%w: more than %d days", ErrInvalidDateRange, MaxRangeDays)
	}
	return r, nil
}

// Dates lists every calendar date of the range as "YYYY-MM-DD".
func (r DateRange) Dates() []string {
	out := make([]string, 0, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(time.DateOnly))
	}
	return out
}

// Days counts the dates in the range, both ends included.
func (r DateRange) Days() int {
	if r.To.Before(r.From) {
		return 0
	}
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
