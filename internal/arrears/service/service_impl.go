package service

import (
	"context"
	"sync"
	"time"

	arrearsdomain "github.com/railzwaylabs/roomledger/internal/arrears/domain"
	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	"github.com/railzwaylabs/roomledger/internal/observability"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTrailing = 3
	maxTrailing     = 24
	monthWorkers    = 4
)

type Service struct {
	log      *zap.Logger
	rooms    roomdomain.Service
	prices   pricedomain.Service
	rating   ratingdomain.Service
	payments paymentdomain.Service
	clock    clock.Clock
	config   *config.Source
}

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Rooms    roomdomain.Service
	Prices   pricedomain.Service
	Rating   ratingdomain.Service
	Payments paymentdomain.Service
	Clock    clock.Clock
	Config   *config.Source
}

func NewService(p ServiceParam) arrearsdomain.Service {
	return &Service{
		log:      p.Log.Named("arrears.service"),
		rooms:    p.Rooms,
		prices:   p.Prices,
		rating:   p.Rating,
		payments: p.Payments,
		clock:    p.Clock,
		config:   p.Config,
	}
}

func (s *Service) Scan(ctx context.Context, buildingID string, trailing int) ([]arrearsdomain.MonthArrears, error) {
	ctx, span := observability.Tracer().Start(ctx, "arrears.Scan")
	defer span.End()

	start := time.Now()
	out, err := s.scan(ctx, buildingID, s.window(trailing))
	observability.ObserveArrearsScan(err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("building", buildingID), attribute.Int("months", len(out)))
	return out, nil
}

func (s *Service) window(trailing int) int {
	if trailing <= 0 {
		trailing = s.config.Billing().ArrearsMonths
	}
	if trailing <= 0 {
		trailing = defaultTrailing
	}
	return min(trailing, maxTrailing)
}

func (s *Service) scan(ctx context.Context, buildingID string, trailing int) ([]arrearsdomain.MonthArrears, error) {
	rooms, err := s.rooms.List(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	table, err := s.prices.GetRates(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	var occupied []roomdomain.Room
	for _, room := range rooms {
		if room.Occupied() {
			occupied = append(occupied, room)
		}
	}
	// Each room's history is read at most once, and only if some month is
	// unsettled.
	histories := make(map[string]func() (meteringdomain.History, error), len(occupied))
	for _, room := range occupied {
		histories[room.ID] = sync.OnceValues(func() (meteringdomain.History, error) {
			return s.rooms.History(ctx, buildingID, room.ID)
		})
	}

	current := meteringdomain.MonthOf(s.clock.Now(ctx).In(s.config.Billing().Location()))
	counts := make([]int, trailing)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthWorkers)
	for i := range trailing {
		month := current.AddMonths(-(i + 1))
		g.Go(func() error {
			for _, room := range occupied {
				owes, err := s.owes(gctx, buildingID, room.ID, month, table.Rates, histories[room.ID])
				if err != nil {
					return err
				}
				if owes {
					counts[i]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []arrearsdomain.MonthArrears
	for i, n := range counts {
		if n == 0 {
			continue
		}
		month := current.AddMonths(-(i + 1))
		out = append(out, arrearsdomain.MonthArrears{Month: month, Label: month.Label(), Count: n})
	}
	s.log.Debug("arrears scanned",
		zap.String("building", buildingID),
		zap.String("current", current.String()),
		zap.Int("trailing", trailing),
		zap.Int("rooms", len(occupied)),
		zap.Int("months_in_arrears", len(out)),
	)
	return out, nil
}

// owes checks settlement before touching usage so settled rooms never load
// their history.
func (s *Service) owes(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey, rates ratingdomain.Rates, history func() (meteringdomain.History, error)) (bool, error) {
	rec, err := s.payments.GetSettlement(ctx, buildingID, roomID, month)
	if err != nil {
		return false, err
	}
	if rec.Paid() {
		return false, nil
	}
	h, err := history()
	if err != nil {
		return false, err
	}
	return s.rating.Charge(h, month, rates).Total > 0, nil
}
