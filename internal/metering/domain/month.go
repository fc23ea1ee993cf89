package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DueDay is the day of the following month on which a bill falls due.
const DueDay = 10

// MonthKey identifies a calendar billing month, formatted "YYYY-MM".
type MonthKey struct {
	Year  int
	Month time.Month
}

func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOf returns the month containing t in t's location.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) != 7 || s[4] != '-' || !digits(s[:4]) || !digits(s[5:]) {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	if year < 1 || month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label is the short human form "M/YYYY".
func (m MonthKey) Label() string {
	return fmt.Sprintf("%d/%d", int(m.Month), m.Year)
}

func (m MonthKey) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Start is midnight UTC on the first day of the month.
func (m MonthKey) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m MonthKey) AddMonths(n int) MonthKey {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

func (m MonthKey) Prev() MonthKey { return m.AddMonths(-1) }

func (m MonthKey) Next() MonthKey { return m.AddMonths(1) }

func (m MonthKey) Before(o MonthKey) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Days is the number of days in the month.
func (m MonthKey) Days() int {
	return m.Next().Start().AddDate(0, 0, -1).Day()
}

// Date formats a day of the month as a history key "YYYY-MM-DD".
func (m MonthKey) Date(day int) string {
	return fmt.Sprintf("%s-%02d", m.String(), day)
}

// Contains reports whether a "YYYY-MM-DD" history key falls in the month.
func (m MonthKey) Contains(date string) bool {
	return len(date) == 10 && date[:7] == m.String()
}

// DueDate is day DueDay of the following month.
func (m MonthKey) DueDate() time.Time {
	next := m.Next()
	return time.Date(next.Year, next.Month, DueDay, 0, 0, 0, 0, time.UTC)
}

// IsOverdue reports whether the calendar date of today is strictly later
// than the due date.
func (m MonthKey) IsOverdue(today time.Time) bool {
	y, mo, d := today.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return day.After(m.DueDate())
}

func (m MonthKey) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MonthKey) UnmarshalText(b []byte) error {
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
