package domain

import (
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
)

type Service interface {
	// ComputeCost prices each kind present in usage that has a rate.
	ComputeCost(usage map[meteringdomain.Kind]float64, rates Rates) Cost
	// Charge extracts usage for every billed kind and prices it.
	Charge(history meteringdomain.History, month meteringdomain.MonthKey, rates Rates) Charge
}
