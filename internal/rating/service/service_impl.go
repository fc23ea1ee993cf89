package service

import (
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log       *zap.Logger
	extractor meteringdomain.Extractor
}

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	Extractor meteringdomain.Extractor
}

func NewService(p ServiceParam) ratingdomain.Service {
	return &Service{
		log:       p.Log.Named("rating.service"),
		extractor: p.Extractor,
	}
}

func (s *Service) ComputeCost(usage map[meteringdomain.Kind]float64, rates ratingdomain.Rates) ratingdomain.Cost {
	return ComputeCost(usage, rates)
}

func (s *Service) Charge(history meteringdomain.History, month meteringdomain.MonthKey, rates ratingdomain.Rates) ratingdomain.Charge {
	usage := s.extractor.UsageByKind(history, month, rates.BilledKinds())
	cost := ComputeCost(usage, rates)
	return ratingdomain.Charge{
		Month: month,
		Usage: usage,
		Cost:  cost.ByKind,
		Total: cost.Total,
		Rates: rates,
	}
}

// ComputeCost prices raw usage and rounds each kind half away from zero to
// the integer currency unit. Negative usage is treated as zero.
func ComputeCost(usage map[meteringdomain.Kind]float64, rates ratingdomain.Rates) ratingdomain.Cost {
	cost := ratingdomain.Cost{ByKind: make(map[meteringdomain.Kind]int64, len(usage))}
	for kind, qty := range usage {
		rate, ok := rates[kind]
		if !ok {
			continue
		}
		amount := lineAmount(qty, rate)
		cost.ByKind[kind] = amount
		cost.Total += amount
	}
	return cost
}

func lineAmount(qty float64, rate int64) int64 {
	if qty <= 0 || rate <= 0 {
		return 0
	}
	return decimal.NewFromFloat(qty).Mul(decimal.NewFromInt(rate)).Round(0).IntPart()
}
