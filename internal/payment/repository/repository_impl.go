package repository

import (
	"context"
	"strings"
	"time"

	"github.com/railzwaylabs/roomledger/internal/layout"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
)

// Stored field names are shared with the mobile and dashboard clients.
const (
	fieldID            = "id"
	fieldAmount        = "amount"
	fieldRoomNumber    = "roomNumber"
	fieldStatus        = "status"
	fieldMethod        = "method"
	fieldPaymentMethod = "paymentMethod"
	fieldPaidBy        = "paidBy"
	fieldTimestamp     = "timestamp"
	fieldNote          = "note"
	usageSuffix        = "Usage"
	costSuffix         = "Cost"

	// timestampLayout matches the millisecond ISO form older records use.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

type repo struct {
	store storedomain.Store
}

func Provide(store storedomain.Store) paymentdomain.Repository {
	return &repo{store: store}
}

func (r *repo) Get(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey) (*paymentdomain.Record, error) {
	canonical, err := r.read(ctx, layout.Payment(buildingID, roomID, month.String()), buildingID, roomID, month)
	if err != nil {
		return nil, err
	}
	if canonical.Paid() {
		return canonical, nil
	}

	legacy, err := r.read(ctx, layout.LegacyPayment(buildingID, roomID, month.String()), buildingID, roomID, month)
	if err != nil {
		return nil, err
	}
	if legacy.Paid() {
		legacy.Legacy = true
		return legacy, nil
	}

	if canonical != nil {
		return canonical, nil
	}
	if legacy != nil {
		legacy.Legacy = true
	}
	return legacy, nil
}

func (r *repo) read(ctx context.Context, path, buildingID, roomID string, month meteringdomain.MonthKey) (*paymentdomain.Record, error) {
	snap, err := r.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, nil
	}
	return decode(snap, buildingID, roomID, month), nil
}

func decode(snap storedomain.Snapshot, buildingID, roomID string, month meteringdomain.MonthKey) *paymentdomain.Record {
	rec := &paymentdomain.Record{
		BuildingID: buildingID,
		RoomID:     roomID,
		Month:      month,
		Usage:      map[meteringdomain.Kind]float64{},
		Cost:       map[meteringdomain.Kind]int64{},
	}
	rec.ID, _ = snap.Child(fieldID).String()
	if amount, ok := snap.Child(fieldAmount).Float(); ok {
		rec.Amount = int64(amount)
	}
	status, _ := snap.Child(fieldStatus).String()
	rec.Status = paymentdomain.Status(status)

	method, _ := snap.Child(fieldPaymentMethod).String()
	if method == "" {
		method, _ = snap.Child(fieldMethod).String()
	}
	rec.Method = paymentdomain.Method(method)

	for _, kind := range meteringdomain.Kinds {
		if v, ok := snap.Child(string(kind) + usageSuffix).Float(); ok {
			rec.Usage[kind] = v
		}
		if v, ok := snap.Child(string(kind) + costSuffix).Float(); ok {
			rec.Cost[kind] = int64(v)
		}
	}

	rec.PaidBy, _ = snap.Child(fieldPaidBy).String()
	rec.Note, _ = snap.Child(fieldNote).String()
	if at, ok := parseTimestamp(snap.Child(fieldTimestamp)); ok {
		rec.PaidAt = &at
	}
	return rec
}

// parseTimestamp accepts an RFC 3339 string or epoch milliseconds.
func parseTimestamp(snap storedomain.Snapshot) (time.Time, bool) {
	if ms, ok := snap.Value().(float64); ok {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	s, ok := snap.String()
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func (r *repo) Settle(ctx context.Context, rec *paymentdomain.Record) (bool, error) {
	return r.store.ReplaceIf(ctx, layout.Payment(rec.BuildingID, rec.RoomID, rec.Month.String()), encode(rec), unsettled)
}

func unsettled(current storedomain.Snapshot) bool {
	status, _ := current.Child(fieldStatus).String()
	return !strings.EqualFold(status, string(paymentdomain.StatusPaid))
}

func encode(rec *paymentdomain.Record) map[string]any {
	out := map[string]any{
		fieldAmount:        rec.Amount,
		fieldRoomNumber:    rec.RoomID,
		fieldStatus:        string(rec.Status),
		fieldMethod:        string(rec.Method),
		fieldPaymentMethod: string(rec.Method),
		fieldPaidBy:        rec.PaidBy,
	}
	if rec.ID != "" {
		out[fieldID] = rec.ID
	}
	if rec.Note != "" {
		out[fieldNote] = rec.Note
	}
	if rec.PaidAt != nil {
		out[fieldTimestamp] = rec.PaidAt.UTC().Format(timestampLayout)
	}
	for _, kind := range meteringdomain.Kinds {
		out[string(kind)+usageSuffix] = rec.Usage[kind]
		out[string(kind)+costSuffix] = rec.Cost[kind]
	}
	return out
}
