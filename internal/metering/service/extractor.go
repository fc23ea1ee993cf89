package service

import (
	"math"

	"github.com/railzwaylabs/roomledger/internal/config"
	"github.com/railzwaylabs/roomledger/internal/metering/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ExtractorParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

type Extractor struct {
	formula domain.Formula
}

// NewExtractor builds the extractor for the configured formula. An unknown
// formula falls back to boundary crossing.
func NewExtractor(p ExtractorParam) domain.Extractor {
	formula, err := domain.ParseFormula(p.Config.Billing.UsageFormula)
	if err != nil {
		p.Log.Named("metering.extractor").Warn("falling back to boundary formula", zap.Error(err))
		formula = domain.FormulaBoundary
	}
	return New(formula)
}

func New(formula domain.Formula) *Extractor {
	return &Extractor{formula: formula}
}

func (e *Extractor) MonthlyUsage(history domain.History, month domain.MonthKey, kind domain.Kind) float64 {
	if e.formula == domain.FormulaIntraMonth {
		return IntraMonth(history, month, kind)
	}
	return BoundaryCrossing(history, month, kind)
}

func (e *Extractor) UsageByKind(history domain.History, month domain.MonthKey, kinds []domain.Kind) map[domain.Kind]float64 {
	out := make(map[domain.Kind]float64, len(kinds))
	for _, kind := range kinds {
		out[kind] = e.MonthlyUsage(history, month, kind)
	}
	return out
}

// BoundaryCrossing is latest(month) - latest(previous month). Without any
// reading in the previous month it falls back to latest(month) -
// earliest(month), which is 0 for a single sample.
func BoundaryCrossing(history domain.History, month domain.MonthKey, kind domain.Kind) float64 {
	latestDate, latest, ok := latestIn(history, month, kind)
	if !ok {
		return 0
	}
	if _, previous, ok := latestIn(history, month.Prev(), kind); ok {
		return math.Max(0, latest-previous)
	}
	earliestDate, earliest, _ := earliestIn(history, month, kind)
	if earliestDate == latestDate {
		return 0
	}
	return math.Max(0, latest-earliest)
}

// IntraMonth is last(month) - first(month), and 0 with fewer than two
// readings in the month.
func IntraMonth(history domain.History, month domain.MonthKey, kind domain.Kind) float64 {
	latestDate, latest, ok := latestIn(history, month, kind)
	if !ok {
		return 0
	}
	earliestDate, earliest, _ := earliestIn(history, month, kind)
	if earliestDate == latestDate {
		return 0
	}
	return math.Max(0, latest-earliest)
}

func latestIn(history domain.History, month domain.MonthKey, kind domain.Kind) (string, float64, bool) {
	for day := month.Days(); day >= 1; day-- {
		date := month.Date(day)
		if v, ok := history.Value(date, kind); ok {
			return date, v, true
		}
	}
	return "", 0, false
}

func earliestIn(history domain.History, month domain.MonthKey, kind domain.Kind) (string, float64, bool) {
	days := month.Days()
	for day := 1; day <= days; day++ {
		date := month.Date(day)
		if v, ok := history.Value(date, kind); ok {
			return date, v, true
		}
	}
	return "", 0, false
}
