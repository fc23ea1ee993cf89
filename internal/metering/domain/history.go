package domain

import "sort"

// Reading holds the cumulative counter values sampled on one date.
type Reading map[Kind]float64

// History maps "YYYY-MM-DD" to the readings taken that day.
type History map[string]Reading

// Value returns the reading of kind on date, if one was recorded.
func (h History) Value(date string, kind Kind) (float64, bool) {
	r, ok := h[date]
	if !ok {
		return 0, false
	}
	v, ok := r[kind]
	return v, ok
}

// Dates lists the recorded dates in ascending order.
func (h History) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Set records one value, creating the day entry when needed.
func (h History) Set(date string, kind Kind, value float64) {
	r, ok := h[date]
	if !ok {
		r = Reading{}
		h[date] = r
	}
	r[kind] = value
}
