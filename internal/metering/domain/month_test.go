package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/railzwaylabs/roomledger/internal/metering/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonthKey(t *testing.T) {
	m, err := domain.ParseMonthKey("2024-02")
	require.NoError(t, err)
	assert.Equal(t, domain.MonthKey{Year: 2024, Month: time.February}, m)
	assert.Equal(t, "2024-02", m.String())

	for _, bad := range []string{"", "2024-2", "2024-13", "2024-00", "24-02", "2024/02", "2024--1", "abcd-ef"} {
		_, err := domain.ParseMonthKey(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidMonthKey, bad)
	}
}

func TestMonthKeyArithmetic(t *testing.T) {
	jan := domain.NewMonthKey(2024, time.January)
	assert.Equal(t, "2023-12", jan.Prev().String())
	assert.Equal(t, "2024-02", jan.Next().String())
	assert.Equal(t, "2023-10", jan.AddMonths(-3).String())
	assert.Equal(t, 29, jan.Next().Days())
	assert.Equal(t, 28, domain.NewMonthKey(2023, time.February).Days())
	assert.Equal(t, "2024-01-05", jan.Date(5))
	assert.True(t, jan.Contains("2024-01-31"))
	assert.False(t, jan.Contains("2024-02-01"))
	assert.True(t, jan.Before(jan.Next()))
	assert.Equal(t, "1/2024", jan.Label())
}

func TestDueDateAndOverdue(t *testing.T) {
	dec := domain.NewMonthKey(2023, time.December)
	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), dec.DueDate())

	assert.False(t, dec.IsOverdue(time.Date(2024, time.January, 10, 23, 59, 0, 0, time.UTC)))
	assert.True(t, dec.IsOverdue(time.Date(2024, time.January, 11, 0, 0, 1, 0, time.UTC)))
	assert.False(t, dec.IsOverdue(time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)))
}

func TestMonthKeyJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Month domain.MonthKey `json:"month"`
	}{domain.NewMonthKey(2024, time.April)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"month":"2024-04"}`, string(raw))

	var out struct {
		Month domain.MonthKey `json:"month"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"month":"2023-11"}`), &out))
	assert.Equal(t, domain.NewMonthKey(2023, time.November), out.Month)
}

func TestParseDateRange(t *testing.T) {
	today := time.Date(2024, 5, 3, 22, 15, 0, 0, time.UTC)

	r, err := domain.ParseDateRange("", "2024-05-01", today)
	require.NoError(t, err)
	assert.Equal(t, 10, r.Days())
	assert.Equal(t, "2024-04-24", r.From.Format(time.DateOnly))
	assert.Equal(t, "2024-05-03", r.To.Format(time.DateOnly))

	r, err = domain.ParseDateRange("2024-02-27", "2024-03-01", today)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, r.Dates())

	for _, tc := range [][2]string{
		{"2024-05-03", "2024-05-01"},
		{"03/05/2024", "2024-05-04"},
		{"2024-05-01", "2024-13-01"},
		{"2023-01-01", "2024-05-01"},
	} {
		_, err := domain.ParseDateRange(tc[0], tc[1], today)
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange, "%s..%s", tc[0], tc[1])
	}
}
