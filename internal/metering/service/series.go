package service

import (
	"math"
	"time"

	"github.com/railzwaylabs/roomledger/internal/metering/domain"
)

// DailyDeltas lists max(0, v2-v1) between consecutive recorded dates of
// kind, optionally restricted to dates inside month. Each delta is labelled
// with the later date as DD/MM/YY.
func DailyDeltas(history domain.History, kind domain.Kind, month *domain.MonthKey) []domain.DailyDelta {
	var (
		out      []domain.DailyDelta
		prev     float64
		havePrev bool
	)
	for _, date := range history.Dates() {
		if month != nil && !month.Contains(date) {
			continue
		}
		v, ok := history.Value(date, kind)
		if !ok {
			continue
		}
		if havePrev {
			out = append(out, domain.DailyDelta{
				Date:  date,
				Label: shortLabel(date),
				Usage: math.Max(0, v-prev),
			})
		}
		prev, havePrev = v, true
	}
	return out
}

// RangeDeltas walks every pair of consecutive calendar days in r and yields
// max(0, v(day) - v(day before)) labelled by the later day. A pair where
// either day lacks a reading of kind contributes 0.
func RangeDeltas(history domain.History, kind domain.Kind, r domain.DateRange) []domain.DailyDelta {
	dates := r.Dates()
	if len(dates) < 2 {
		return []domain.DailyDelta{}
	}
	out := make([]domain.DailyDelta, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		d := domain.DailyDelta{Date: dates[i], Label: shortLabel(dates[i])}
		prev, okPrev := history.Value(dates[i-1], kind)
		cur, okCur := history.Value(dates[i], kind)
		if okPrev && okCur {
			d.Usage = math.Max(0, cur-prev)
		}
		out = append(out, d)
	}
	return out
}

// SumDeltas adds series that cover the same dates, position by position.
func SumDeltas(into, add []domain.DailyDelta) []domain.DailyDelta {
	if into == nil {
		into = make([]domain.DailyDelta, len(add))
		copy(into, add)
		return into
	}
	for i := range into {
		if i < len(add) {
			into[i].Usage += add[i].Usage
		}
	}
	return into
}

func shortLabel(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format("02/01/06")
}
