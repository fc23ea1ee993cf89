package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
)

var (
	ErrInvalidArgument = errors.New("invalid_argument")
	ErrAlreadyPaid     = errors.New("already_paid")
)

type Method string

const (
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
)

func ParseMethod(s string) (Method, bool) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodCash, MethodTransfer:
		return m, true
	default:
		return "", false
	}
}

type Status string

// StatusPaid is the only settled status. Anything else is unsettled.
const StatusPaid Status = "PAID"

// DefaultPaidBy is recorded when the caller is not identified.
const DefaultPaidBy = "admin"

// Record is the settlement of one room for one month. A PAID record is never
// modified.
type Record struct {
	ID         string                          `json:"id,omitempty"`
	BuildingID string                          `json:"building_id"`
	RoomID     string                          `json:"room_id"`
	Month      meteringdomain.MonthKey         `json:"month"`
	Amount     int64                           `json:"amount"`
	Status     Status                          `json:"status"`
	Method     Method                          `json:"method,omitempty"`
	Usage      map[meteringdomain.Kind]float64 `json:"usage"`
	Cost       map[meteringdomain.Kind]int64   `json:"cost"`
	PaidBy     string                          `json:"paid_by,omitempty"`
	PaidAt     *time.Time                      `json:"paid_at,omitempty"`
	Note       string                          `json:"note,omitempty"`

	// Legacy is set when the record was read from the singular key.
	Legacy bool `json:"legacy"`
}

func (r *Record) Paid() bool {
	return r != nil && strings.EqualFold(string(r.Status), string(StatusPaid))
}

type MarkPaidRequest struct {
	BuildingID string
	RoomID     string
	Month      string
	Method     string
	// ClientAmount is stored as the amount when positive; otherwise the
	// recomputed total is.
	ClientAmount *int64
	Note         string
	PaidBy       string
}

type Repository interface {
	// Get reads both key shapes and prefers a PAID record. It returns nil
	// when neither exists.
	Get(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey) (*Record, error)
	// Settle writes rec under the canonical key, replacing an unsettled
	// record in the same atomic step. It reports false when a PAID record
	// is already there.
	Settle(ctx context.Context, rec *Record) (bool, error)
}

type Service interface {
	GetSettlement(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey) (*Record, error)
	MarkPaid(ctx context.Context, req MarkPaidRequest) (*Record, error)
}
