package service_test

import (
	"context"
	"testing"
	"time"

	billingdomain "github.com/railzwaylabs/roomledger/internal/billing/domain"
	"github.com/railzwaylabs/roomledger/internal/billing/service"
	"github.com/railzwaylabs/roomledger/internal/ledgertest"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree() map[string]any {
	return map[string]any{
		"buildings": map[string]any{
			"b1": map[string]any{
				"price_electric": 3000,
				"rooms": map[string]any{
					"101": map[string]any{
						"phone": "0901000101",
						"history": map[string]any{
							"2024-03-31": map[string]any{"electric": 100, "water": 20},
							"2024-04-10": map[string]any{"electric": 120.004},
							"2024-04-30": map[string]any{"electric": 150.006, "water": 35},
						},
					},
					"102": map[string]any{
						"phone": "0901000102",
						"history": map[string]any{
							"2024-03-31": map[string]any{"water": 10},
							"2024-04-30": map[string]any{"water": 12},
						},
						"payments": map[string]any{
							"2024-04": map[string]any{"status": "PAID", "amount": 30000, "paymentMethod": "cash"},
						},
					},
					"103": map[string]any{
						"phone": "0901000103",
						"history": map[string]any{
							"2024-04-30": map[string]any{"water": 9},
						},
					},
					"201": map[string]any{
						"history": map[string]any{
							"2024-03-31": map[string]any{"water": 1},
							"2024-04-30": map[string]any{"water": 2},
						},
						"payment": map[string]any{
							"2024-04": map[string]any{"status": "PAID", "method": "transfer"},
						},
					},
				},
			},
		},
	}
}

func newService(t *testing.T, now time.Time) (billingdomain.Service, *ledgertest.Env) {
	t.Helper()
	env := ledgertest.New(t, tree(), now)
	return service.NewService(service.ServiceParam{
		Log:      env.Log,
		Rooms:    env.Rooms,
		Prices:   env.Prices,
		Rating:   env.Rating,
		Payments: env.Payments,
		Clock:    env.Clock,
		Config:   env.Config,
	}), env
}

func april() meteringdomain.MonthKey {
	return meteringdomain.NewMonthKey(2024, time.April)
}

func TestStatementRows(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))

	st, err := svc.Statement(context.Background(), "b1", april())
	require.NoError(t, err)
	require.Len(t, st.Rows, 4)

	r101 := st.Rows[0]
	assert.Equal(t, "101", r101.RoomID)
	assert.Equal(t, "1", r101.Floor)
	assert.Equal(t, 50.01, r101.Usage[meteringdomain.KindElectric])
	assert.Equal(t, int64(150018), r101.Cost[meteringdomain.KindElectric])
	assert.Equal(t, int64(225000), r101.Cost[meteringdomain.KindWater])
	assert.Equal(t, billingdomain.ChargeUnpaid, r101.Status)
	assert.True(t, r101.Overdue)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), r101.DueDate)
	assert.Equal(t, -10, r101.DaysToDue)

	r102 := st.Rows[1]
	assert.Equal(t, billingdomain.ChargePaid, r102.Status)
	assert.Equal(t, paymentdomain.MethodCash, r102.Method)
	assert.False(t, r102.Overdue)

	r103 := st.Rows[2]
	assert.Equal(t, billingdomain.ChargeNoCost, r103.Status, "a single sample bills nothing")

	r201 := st.Rows[3]
	assert.Equal(t, billingdomain.ChargePaid, r201.Status, "legacy record counts as paid")
	assert.Equal(t, roomdomain.StatusVacant, r201.Occupancy)
}

func TestStatementSummary(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))

	st, err := svc.Statement(context.Background(), "b1", april())
	require.NoError(t, err)

	sum := st.Summary
	assert.Equal(t, int64(30000+15000), sum.TotalRevenue)
	assert.Equal(t, int64(30000), sum.CashRevenue)
	assert.Equal(t, int64(15000), sum.TransferRevenue)
	assert.Equal(t, int64(150018+225000), sum.UnpaidRevenue)
	assert.Equal(t, 2, sum.PaidCount)
	assert.Equal(t, 1, sum.UnpaidCount)
	assert.Equal(t, 1, sum.NoCostCount)
	assert.Equal(t, 3, sum.TenantedRooms)
	assert.Equal(t, 1, sum.OverdueRooms)
	assert.Equal(t, 67, sum.PaymentRate)
	assert.Equal(t, 50.01, sum.Usage[meteringdomain.KindElectric])
	assert.Equal(t, 3, sum.RoomsWithData, "room 103 has a single sample")
}

func TestStatementNotOverdueOnDueDate(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC))

	st, err := svc.Statement(context.Background(), "b1", april())
	require.NoError(t, err)
	assert.False(t, st.Rows[0].Overdue)
	assert.True(t, st.Rows[0].DueToday)
	assert.Equal(t, 0, st.Summary.OverdueRooms)
}

func TestRoomUsage(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))

	usage, err := svc.RoomUsage(context.Background(), "b1", "101", april())
	require.NoError(t, err)

	assert.Equal(t, 15.0, usage.Usage[meteringdomain.KindWater])
	assert.Equal(t, int64(150018+225000), usage.Total)
	assert.Nil(t, usage.Settlement)
	require.Len(t, usage.Daily[meteringdomain.KindElectric], 1)
	assert.Equal(t, "30/04/24", usage.Daily[meteringdomain.KindElectric][0].Label)
	assert.InDelta(t, 30.002, usage.Daily[meteringdomain.KindElectric][0].Usage, 1e-9)
}

func TestRoomUsageMissingRoom(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
	_, err := svc.RoomUsage(context.Background(), "b1", "999", april())
	assert.ErrorIs(t, err, roomdomain.ErrRoomNotFound)
}

func seedEarlyMay(t *testing.T, env *ledgertest.Env) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.Store.Merge(ctx, "buildings/b1/rooms/101/history", map[string]any{
		"2024-05-01": map[string]any{"electric": 152, "water": 36},
		"2024-05-02": map[string]any{"electric": 155.5, "water": 36.5},
	}))
	require.NoError(t, env.Store.Merge(ctx, "buildings/b1/rooms/102/history", map[string]any{
		"2024-05-01": map[string]any{"water": 13},
		"2024-05-02": map[string]any{"water": 15},
	}))
}

func usages(series []meteringdomain.DailyDelta) []float64 {
	out := make([]float64, 0, len(series))
	for _, d := range series {
		out = append(out, d.Usage)
	}
	return out
}

func TestUsageSeriesSumsBuilding(t *testing.T) {
	svc, env := newService(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
	seedEarlyMay(t, env)

	r, err := meteringdomain.ParseDateRange("2024-04-30", "2024-05-02", time.Time{})
	require.NoError(t, err)
	got, err := svc.UsageSeries(context.Background(), "b1", "", r)
	require.NoError(t, err)

	assert.Equal(t, []string{"101", "102", "103", "201"}, got.Rooms)
	assert.Equal(t, "2024-04-30", got.From)
	assert.Equal(t, []float64{1.99, 3.5}, usages(got.Series[meteringdomain.KindElectric]))
	assert.Equal(t, []float64{2, 2.5}, usages(got.Series[meteringdomain.KindWater]))
	assert.Equal(t, "01/05/24", got.Series[meteringdomain.KindWater][0].Label)
}

func TestUsageSeriesForOneRoom(t *testing.T) {
	svc, env := newService(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
	seedEarlyMay(t, env)

	r, err := meteringdomain.ParseDateRange("2024-04-30", "2024-05-02", time.Time{})
	require.NoError(t, err)
	got, err := svc.UsageSeries(context.Background(), "b1", "101", r)
	require.NoError(t, err)

	assert.Equal(t, []string{"101"}, got.Rooms)
	assert.Equal(t, []float64{1.99, 3.5}, usages(got.Series[meteringdomain.KindElectric]))
	assert.Equal(t, []float64{1, 0.5}, usages(got.Series[meteringdomain.KindWater]))

	_, err = svc.UsageSeries(context.Background(), "b1", "999", r)
	assert.ErrorIs(t, err, roomdomain.ErrRoomNotFound)
}

func TestUsageSeriesDefaultRangeWithoutReadings(t *testing.T) {
	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)

	got, err := svc.UsageSeries(context.Background(), "b1", "", meteringdomain.LastDays(now, meteringdomain.DefaultRangeDays))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-11", got.From)
	assert.Equal(t, "2024-05-20", got.To)
	require.Len(t, got.Series[meteringdomain.KindElectric], 9)
	for _, d := range got.Series[meteringdomain.KindElectric] {
		assert.Zero(t, d.Usage)
	}
}
