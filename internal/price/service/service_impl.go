package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	"github.com/railzwaylabs/roomledger/internal/layout"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log    *zap.Logger
	repo   pricedomain.Repository
	config *config.Source
	clock  clock.Clock
}

type ServiceParam struct {
	fx.In

	Log    *zap.Logger
	Repo   pricedomain.Repository
	Config *config.Source
	Clock  clock.Clock
}

func New(p ServiceParam) pricedomain.Service {
	return &Service{
		log:    p.Log.Named("price.service"),
		repo:   p.Repo,
		config: p.Config,
		clock:  p.Clock,
	}
}

func (s *Service) GetRates(ctx context.Context, buildingID string) (*pricedomain.RateTable, error) {
	if err := layout.ValidID(buildingID); err != nil {
		return nil, pricedomain.ErrInvalidBuilding
	}
	stored, err := s.repo.Get(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	return s.table(buildingID, stored), nil
}

func (s *Service) UpdateRates(ctx context.Context, buildingID string, req pricedomain.UpdateRequest) (*pricedomain.UpdateResult, error) {
	if err := layout.ValidID(buildingID); err != nil {
		return nil, pricedomain.ErrInvalidBuilding
	}
	if len(req.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates supplied", pricedomain.ErrInvalidRate)
	}
	for kind, rate := range req.Rates {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown kind %q", pricedomain.ErrInvalidRate, kind)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("%w: %s rate must be positive", pricedomain.ErrInvalidRate, kind)
		}
	}

	stored, err := s.repo.Get(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx).UTC().Truncate(time.Millisecond)
	stamped := map[meteringdomain.Kind]time.Time{}
	changed := []meteringdomain.Kind{}
	for _, kind := range meteringdomain.Kinds {
		rate, ok := req.Rates[kind]
		if !ok {
			continue
		}
		if current := storedPrice(stored, kind); current == nil || *current != rate {
			stamped[kind] = now
			changed = append(changed, kind)
		}
	}

	if err := s.repo.Apply(ctx, buildingID, req.Rates, stamped); err != nil {
		return nil, err
	}
	s.log.Info("rates updated",
		zap.String("building_id", buildingID),
		zap.Any("rates", req.Rates),
		zap.Any("changed", changed),
	)

	updated, err := s.repo.Get(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	return &pricedomain.UpdateResult{
		Table:   s.table(buildingID, updated),
		Changed: changed,
	}, nil
}

func (s *Service) table(buildingID string, stored *pricedomain.StoredRates) *pricedomain.RateTable {
	billing := s.config.Billing()
	defaults := ratingdomain.Rates{
		meteringdomain.KindElectric: billing.ElectricRate,
		meteringdomain.KindWater:    billing.WaterRate,
	}

	table := &pricedomain.RateTable{
		BuildingID: buildingID,
		Rates:      ratingdomain.Rates{},
		UpdatedAt:  map[meteringdomain.Kind]*time.Time{},
		Defaulted:  map[meteringdomain.Kind]bool{},
	}
	for _, kind := range meteringdomain.Kinds {
		if p := storedPrice(stored, kind); p != nil && *p > 0 {
			table.Rates[kind] = *p
		} else {
			table.Rates[kind] = defaults[kind]
			table.Defaulted[kind] = true
		}
		if stored != nil {
			table.UpdatedAt[kind] = stored.UpdatedAt[kind]
		}
	}
	return table
}

func storedPrice(stored *pricedomain.StoredRates, kind meteringdomain.Kind) *int64 {
	if stored == nil {
		return nil
	}
	return stored.Prices[kind]
}
