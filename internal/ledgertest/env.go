// Package ledgertest assembles the billing services over an in-memory store
// for tests.
package ledgertest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	meteringservice "github.com/railzwaylabs/roomledger/internal/metering/service"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	paymentrepo "github.com/railzwaylabs/roomledger/internal/payment/repository"
	paymentservice "github.com/railzwaylabs/roomledger/internal/payment/service"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	pricerepo "github.com/railzwaylabs/roomledger/internal/price/repository"
	priceservice "github.com/railzwaylabs/roomledger/internal/price/service"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
	ratingservice "github.com/railzwaylabs/roomledger/internal/rating/service"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	roomrepo "github.com/railzwaylabs/roomledger/internal/room/repository"
	roomservice "github.com/railzwaylabs/roomledger/internal/room/service"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
	"github.com/railzwaylabs/roomledger/internal/store/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Config is the configuration every Env is built with.
var Config = config.Config{
	AppName:     "roomledger",
	Environment: config.EnvDevelopment,
	Billing: config.BillingConfig{
		ElectricRate:  3300,
		WaterRate:     15000,
		ArrearsMonths: 3,
		UsageFormula:  string(meteringdomain.FormulaBoundary),
		Timezone:      "UTC",
	},
}

type Env struct {
	Store    storedomain.Store
	Clock    clock.Clock
	Config   *config.Source
	Log      *zap.Logger
	GenID    *snowflake.Node
	Rooms    roomdomain.Service
	Prices   pricedomain.Service
	Rating   ratingdomain.Service
	Payments paymentdomain.Service
}

// New seeds an in-memory store with tree and wires the services over it
// with the clock fixed at now.
func New(t *testing.T, tree map[string]any, now time.Time) *Env {
	t.Helper()
	return NewWithStore(t, memory.Seed(tree), now)
}

func NewWithStore(t *testing.T, st storedomain.Store, now time.Time) *Env {
	t.Helper()
	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	env := &Env{
		Store:  st,
		Clock:  clock.Fixed(now),
		Config: config.NewStaticSource(Config),
		Log:    zap.NewNop(),
		GenID:  genID,
	}
	env.Rooms = roomservice.New(roomservice.ServiceParam{Log: env.Log, Repo: roomrepo.Provide(st), Clock: env.Clock})
	env.Prices = priceservice.New(priceservice.ServiceParam{
		Log:    env.Log,
		Repo:   pricerepo.Provide(st),
		Config: env.Config,
		Clock:  env.Clock,
	})
	env.Rating = ratingservice.NewService(ratingservice.ServiceParam{
		Log:       env.Log,
		Extractor: meteringservice.New(meteringdomain.FormulaBoundary),
	})
	env.Payments = paymentservice.NewService(paymentservice.ServiceParam{
		Log:    env.Log,
		Repo:   paymentrepo.Provide(st),
		Rooms:  env.Rooms,
		Prices: env.Prices,
		Rating: env.Rating,
		Clock:  env.Clock,
		GenID:  genID,
	})
	return env
}
