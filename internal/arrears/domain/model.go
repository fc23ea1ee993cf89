// Package domain reports past months with unsettled, non-zero charges.
package domain

import (
	"context"

	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
)

// MonthArrears counts the occupied rooms owing money for one month.
type MonthArrears struct {
	Month meteringdomain.MonthKey `json:"month_key"`
	Label string                  `json:"month"`
	Count int                     `json:"count"`
}

type Service interface {
	// Scan checks the trailing months strictly before the current month,
	// most recent first. Months without arrears are omitted. A non-positive
	// trailing uses the configured window.
	Scan(ctx context.Context, buildingID string, trailing int) ([]MonthArrears, error)
}
