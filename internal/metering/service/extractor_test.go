package service_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/railzwaylabs/roomledger/internal/metering/domain"
	"github.com/railzwaylabs/roomledger/internal/metering/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(t *testing.T, s string) domain.MonthKey {
	t.Helper()
	m, err := domain.ParseMonthKey(s)
	require.NoError(t, err)
	return m
}

func history(entries map[string]float64, kind domain.Kind) domain.History {
	h := domain.History{}
	for date, v := range entries {
		h.Set(date, kind, v)
	}
	return h
}

func TestBoundaryCrossing(t *testing.T) {
	tests := []struct {
		name     string
		readings map[string]float64
		month    string
		want     float64
	}{
		{
			name:     "crosses month boundary",
			readings: map[string]float64{"2024-01-31": 100, "2024-02-28": 150},
			month:    "2024-02",
			want:     50,
		},
		{
			name:     "uses latest of previous month even when early",
			readings: map[string]float64{"2024-01-03": 80, "2024-01-20": 90, "2024-02-10": 95, "2024-02-27": 130},
			month:    "2024-02",
			want:     40,
		},
		{
			name:     "falls back to intra month without previous data",
			readings: map[string]float64{"2024-02-05": 10, "2024-02-25": 40},
			month:    "2024-02",
			want:     30,
		},
		{
			name:     "single sample month",
			readings: map[string]float64{"2024-02-14": 77},
			month:    "2024-02",
			want:     0,
		},
		{
			name:     "no data in month",
			readings: map[string]float64{"2024-01-31": 100},
			month:    "2024-02",
			want:     0,
		},
		{
			name:     "counter reset clamps to zero",
			readings: map[string]float64{"2024-01-31": 900, "2024-02-29": 12},
			month:    "2024-02",
			want:     0,
		},
		{
			name:     "ignores data older than previous month",
			readings: map[string]float64{"2023-12-31": 10, "2024-02-10": 40, "2024-02-20": 55},
			month:    "2024-02",
			want:     15,
		},
		{
			name:     "january looks at december",
			readings: map[string]float64{"2023-12-30": 500, "2024-01-31": 620},
			month:    "2024-01",
			want:     120,
		},
		{
			name:     "fractional readings",
			readings: map[string]float64{"2024-03-31": 10.25, "2024-04-30": 12.75},
			month:    "2024-04",
			want:     2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := history(tt.readings, domain.KindElectric)
			got := service.BoundaryCrossing(h, month(t, tt.month), domain.KindElectric)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBoundaryCrossingReadsOnlyRequestedKind(t *testing.T) {
	h := domain.History{}
	h.Set("2024-03-31", domain.KindWater, 20)
	h.Set("2024-04-30", domain.KindWater, 35)
	h.Set("2024-04-30", domain.KindElectric, 400)

	assert.Equal(t, 15.0, service.BoundaryCrossing(h, month(t, "2024-04"), domain.KindWater))
	assert.Equal(t, 0.0, service.BoundaryCrossing(h, month(t, "2024-04"), domain.KindElectric))
}

func TestIntraMonthIgnoresPreviousMonth(t *testing.T) {
	h := history(map[string]float64{"2024-01-31": 100, "2024-02-28": 150}, domain.KindElectric)
	assert.Equal(t, 0.0, service.IntraMonth(h, month(t, "2024-02"), domain.KindElectric))

	h.Set("2024-02-02", domain.KindElectric, 120)
	assert.Equal(t, 30.0, service.IntraMonth(h, month(t, "2024-02"), domain.KindElectric))
}

func TestUsageIsNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := month(t, "2024-06")
	for i := 0; i < 200; i++ {
		h := domain.History{}
		for _, mk := range []domain.MonthKey{m.Prev(), m} {
			for day := 1; day <= mk.Days(); day++ {
				if rng.Intn(4) == 0 {
					h.Set(mk.Date(day), domain.KindWater, rng.Float64()*1000)
				}
			}
		}
		assert.GreaterOrEqual(t, service.BoundaryCrossing(h, m, domain.KindWater), 0.0)
		assert.GreaterOrEqual(t, service.IntraMonth(h, m, domain.KindWater), 0.0)
	}
}

func TestExtractorFormulaSelection(t *testing.T) {
	h := history(map[string]float64{"2024-01-31": 100, "2024-02-28": 150}, domain.KindElectric)
	m := month(t, "2024-02")

	assert.Equal(t, 50.0, service.New(domain.FormulaBoundary).MonthlyUsage(h, m, domain.KindElectric))
	assert.Equal(t, 0.0, service.New(domain.FormulaIntraMonth).MonthlyUsage(h, m, domain.KindElectric))

	usage := service.New(domain.FormulaBoundary).UsageByKind(h, m, domain.Kinds)
	assert.Equal(t, map[domain.Kind]float64{domain.KindElectric: 50, domain.KindWater: 0}, usage)
}

func TestDailyDeltas(t *testing.T) {
	h := history(map[string]float64{
		"2024-02-27": 100,
		"2024-03-01": 104,
		"2024-03-02": 103,
		"2024-03-05": 110,
	}, domain.KindElectric)

	all := service.DailyDeltas(h, domain.KindElectric, nil)
	require.Len(t, all, 3)
	assert.Equal(t, domain.DailyDelta{Date: "2024-03-01", Label: "01/03/24", Usage: 4}, all[0])
	assert.Equal(t, 0.0, all[1].Usage)
	assert.Equal(t, 7.0, all[2].Usage)

	m := month(t, "2024-03")
	inMarch := service.DailyDeltas(h, domain.KindElectric, &m)
	require.Len(t, inMarch, 2)
	assert.Equal(t, "2024-03-02", inMarch[0].Date)
}

func TestRangeDeltasWalksCalendarDays(t *testing.T) {
	h := history(map[string]float64{
		"2024-04-28": 100,
		"2024-04-29": 104,
		"2024-05-01": 110,
		"2024-05-02": 109,
		"2024-05-03": 115,
	}, domain.KindElectric)
	h.Set("2024-04-30", domain.KindWater, 7)

	r, err := domain.ParseDateRange("2024-04-28", "2024-05-03", time.Time{})
	require.NoError(t, err)

	got := service.RangeDeltas(h, domain.KindElectric, r)
	require.Len(t, got, 5)
	assert.Equal(t, domain.DailyDelta{Date: "2024-04-29", Label: "29/04/24", Usage: 4}, got[0])
	// 04-30 has no electric reading, so both pairs around it are empty.
	assert.Equal(t, 0.0, got[1].Usage)
	assert.Equal(t, 0.0, got[2].Usage)
	assert.Equal(t, 0.0, got[3].Usage)
	assert.Equal(t, domain.DailyDelta{Date: "2024-05-03", Label: "03/05/24", Usage: 6}, got[4])

	single, err := domain.ParseDateRange("2024-05-03", "2024-05-03", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, service.RangeDeltas(h, domain.KindElectric, single))
}

func TestSumDeltas(t *testing.T) {
	a := []domain.DailyDelta{{Date: "2024-05-02", Usage: 1}, {Date: "2024-05-03", Usage: 2}}
	b := []domain.DailyDelta{{Date: "2024-05-02", Usage: 3}, {Date: "2024-05-03", Usage: 0.5}}

	sum := service.SumDeltas(nil, a)
	sum = service.SumDeltas(sum, b)
	assert.Equal(t, 4.0, sum[0].Usage)
	assert.Equal(t, 2.5, sum[1].Usage)
	assert.Equal(t, 1.0, a[0].Usage)
}
