// Package domain contains the priced outputs of a billing month.
package domain

import (
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
)

// Rates is the price per unit of each billed kind in the smallest currency
// unit. Kinds missing from Rates are not billed.
type Rates map[meteringdomain.Kind]int64

// BilledKinds lists the kinds that carry a rate, in display order.
func (r Rates) BilledKinds() []meteringdomain.Kind {
	kinds := make([]meteringdomain.Kind, 0, len(r))
	for _, k := range meteringdomain.Kinds {
		if _, ok := r[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Cost is usage priced per kind.
type Cost struct {
	ByKind map[meteringdomain.Kind]int64 `json:"by_kind"`
	Total  int64                         `json:"total"`
}

// Charge is one room's priced consumption for one month.
type Charge struct {
	Month meteringdomain.MonthKey         `json:"month"`
	Usage map[meteringdomain.Kind]float64 `json:"usage"`
	Cost  map[meteringdomain.Kind]int64   `json:"cost"`
	Total int64                           `json:"total"`
	Rates Rates                           `json:"rates"`
}
