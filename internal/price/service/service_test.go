package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	"github.com/railzwaylabs/roomledger/internal/price/repository"
	"github.com/railzwaylabs/roomledger/internal/price/service"
	"github.com/railzwaylabs/roomledger/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T, st *memory.Store, at time.Time) pricedomain.Service {
	t.Helper()
	return service.New(service.ServiceParam{
		Log:  zap.NewNop(),
		Repo: repository.Provide(st),
		Config: config.NewStaticSource(config.Config{
			Billing: config.BillingConfig{ElectricRate: 3300, WaterRate: 15000, ArrearsMonths: 3},
		}),
		Clock: clock.Fixed(at),
	})
}

func TestGetRatesFallsBackToDefaults(t *testing.T) {
	st := memory.Seed(map[string]any{
		"buildings": map[string]any{
			"b1": map[string]any{"price_water": 18000},
		},
	})
	table, err := newService(t, st, now).GetRates(context.Background(), "b1")
	require.NoError(t, err)

	assert.Equal(t, int64(3300), table.Rates[meteringdomain.KindElectric])
	assert.Equal(t, int64(18000), table.Rates[meteringdomain.KindWater])
	assert.True(t, table.Defaulted[meteringdomain.KindElectric])
	assert.False(t, table.Defaulted[meteringdomain.KindWater])
}

func TestUpdateRatesStampsOnlyChangedKinds(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := memory.Seed(map[string]any{
		"buildings": map[string]any{
			"b1": map[string]any{
				"price_electric":            3300,
				"price_electric_updated_at": earlier.UnixMilli(),
				"price_water":               15000,
				"price_water_updated_at":    earlier.UnixMilli(),
				"price_updated_at":          earlier.UnixMilli(),
			},
		},
	})
	ctx := context.Background()

	res, err := newService(t, st, now).UpdateRates(ctx, "b1", pricedomain.UpdateRequest{
		Rates: map[meteringdomain.Kind]int64{
			meteringdomain.KindElectric: 3300,
			meteringdomain.KindWater:    16000,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []meteringdomain.Kind{meteringdomain.KindWater}, res.Changed)
	assert.Equal(t, earlier, *res.Table.UpdatedAt[meteringdomain.KindElectric])
	assert.Equal(t, now, *res.Table.UpdatedAt[meteringdomain.KindWater])
	assert.Equal(t, int64(16000), res.Table.Rates[meteringdomain.KindWater])

	legacy, err := st.Read(ctx, "buildings/b1/price_updated_at")
	require.NoError(t, err)
	assert.False(t, legacy.Exists())
}

func TestUpdateRatesNoOpKeepsTimestamps(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	req := pricedomain.UpdateRequest{Rates: map[meteringdomain.Kind]int64{meteringdomain.KindElectric: 3500}}

	first, err := newService(t, st, now).UpdateRates(ctx, "b1", req)
	require.NoError(t, err)
	assert.Equal(t, []meteringdomain.Kind{meteringdomain.KindElectric}, first.Changed)

	second, err := newService(t, st, now.Add(time.Hour)).UpdateRates(ctx, "b1", req)
	require.NoError(t, err)
	assert.Empty(t, second.Changed)
	assert.Equal(t, now, *second.Table.UpdatedAt[meteringdomain.KindElectric])
}

func TestUpdateRatesRejectsInvalidInput(t *testing.T) {
	svc := newService(t, memory.New(), now)
	ctx := context.Background()

	_, err := svc.UpdateRates(ctx, "b1", pricedomain.UpdateRequest{Rates: map[meteringdomain.Kind]int64{meteringdomain.KindWater: 0}})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidRate)

	_, err = svc.UpdateRates(ctx, "b1", pricedomain.UpdateRequest{Rates: map[meteringdomain.Kind]int64{meteringdomain.KindElectric: -3300}})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidRate)

	_, err = svc.UpdateRates(ctx, "b1", pricedomain.UpdateRequest{Rates: map[meteringdomain.Kind]int64{"gas": 10}})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidRate)

	_, err = svc.UpdateRates(ctx, "b/1", pricedomain.UpdateRequest{Rates: map[meteringdomain.Kind]int64{meteringdomain.KindWater: 10}})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidBuilding)
}
