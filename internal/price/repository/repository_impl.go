package repository

import (
	"context"
	"time"

	"github.com/railzwaylabs/roomledger/internal/layout"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
)

type repo struct {
	store storedomain.Store
}

func Provide(store storedomain.Store) pricedomain.Repository {
	return &repo{store: store}
}

func (r *repo) Get(ctx context.Context, buildingID string) (*pricedomain.StoredRates, error) {
	base := layout.Building(buildingID)
	out := &pricedomain.StoredRates{
		Prices:    map[meteringdomain.Kind]*int64{},
		UpdatedAt: map[meteringdomain.Kind]*time.Time{},
	}
	found := false

	for _, kind := range meteringdomain.Kinds {
		snap, err := r.store.Read(ctx, storedomain.JoinPath(base, layout.PriceField(string(kind))))
		if err != nil {
			return nil, err
		}
		if v, ok := snap.Float(); ok {
			price := int64(v)
			out.Prices[kind] = &price
			found = true
		}

		stamp, err := r.store.Read(ctx, storedomain.JoinPath(base, layout.PriceUpdatedAtField(string(kind))))
		if err != nil {
			return nil, err
		}
		if t, ok := parseStamp(stamp); ok {
			out.UpdatedAt[kind] = &t
		}
	}

	legacy, err := r.store.Read(ctx, storedomain.JoinPath(base, layout.LegacyPriceUpdatedAt))
	if err != nil {
		return nil, err
	}
	out.LegacyStamp = legacy.Exists()

	if !found && !out.LegacyStamp && len(out.UpdatedAt) == 0 {
		return nil, nil
	}
	return out, nil
}

func (r *repo) Apply(ctx context.Context, buildingID string, prices map[meteringdomain.Kind]int64, stamped map[meteringdomain.Kind]time.Time) error {
	fields := map[string]any{layout.LegacyPriceUpdatedAt: nil}
	for kind, price := range prices {
		fields[layout.PriceField(string(kind))] = price
	}
	for kind, at := range stamped {
		fields[layout.PriceUpdatedAtField(string(kind))] = at.UnixMilli()
	}
	return r.store.Merge(ctx, layout.Building(buildingID), fields)
}

// parseStamp accepts epoch milliseconds or an RFC 3339 string.
func parseStamp(snap storedomain.Snapshot) (time.Time, bool) {
	if ms, ok := snap.Value().(float64); ok {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	if s, ok := snap.String(); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
