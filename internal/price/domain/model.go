package domain

import (
	"context"
	"errors"
	"time"

	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
)

var (
	ErrInvalidBuilding = errors.New("invalid_building")
	ErrInvalidRate     = errors.New("invalid_rate")
)

// RateTable is a building's unit prices with the time each last changed.
type RateTable struct {
	BuildingID string                             `json:"building_id"`
	Rates      ratingdomain.Rates                 `json:"rates"`
	UpdatedAt  map[meteringdomain.Kind]*time.Time `json:"updated_at"`
	Defaulted  map[meteringdomain.Kind]bool       `json:"defaulted,omitempty"`
}

// StoredRates is what the building record holds. Missing prices are nil.
type StoredRates struct {
	Prices      map[meteringdomain.Kind]*int64
	UpdatedAt   map[meteringdomain.Kind]*time.Time
	LegacyStamp bool
}

type UpdateRequest struct {
	Rates map[meteringdomain.Kind]int64
}

type UpdateResult struct {
	Table   *RateTable            `json:"table"`
	Changed []meteringdomain.Kind `json:"changed"`
}

type Repository interface {
	// Get returns nil when the building has no price fields at all.
	Get(ctx context.Context, buildingID string) (*StoredRates, error)
	// Apply sets prices, stamps the given kinds and clears the legacy
	// building-wide stamp.
	Apply(ctx context.Context, buildingID string, prices map[meteringdomain.Kind]int64, stamped map[meteringdomain.Kind]time.Time) error
}

type Service interface {
	GetRates(ctx context.Context, buildingID string) (*RateTable, error)
	UpdateRates(ctx context.Context, buildingID string, req UpdateRequest) (*UpdateResult, error)
}
