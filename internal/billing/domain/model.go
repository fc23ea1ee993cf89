// Package domain describes the monthly billing statement of a building.
package domain

import (
	"context"
	"time"

	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
)

type ChargeStatus string

const (
	ChargeNoCost ChargeStatus = "no-cost"
	ChargePaid   ChargeStatus = "paid"
	ChargeUnpaid ChargeStatus = "unpaid"
)

// Row is one room's line of a statement. Usage is rounded to two decimals
// for display; Cost is priced on the unrounded usage.
type Row struct {
	RoomID    string                          `json:"room_id"`
	Floor     string                          `json:"floor"`
	Phone     string                          `json:"phone,omitempty"`
	Occupancy roomdomain.Status               `json:"occupancy"`
	Tenants   []roomdomain.Tenant             `json:"tenants,omitempty"`
	Usage     map[meteringdomain.Kind]float64 `json:"usage"`
	Cost      map[meteringdomain.Kind]int64   `json:"cost"`
	Total     int64                           `json:"total"`
	Status    ChargeStatus                    `json:"status"`
	Method    paymentdomain.Method            `json:"method,omitempty"`
	PaidAt    *time.Time                      `json:"paid_at,omitempty"`
	DueDate   time.Time                       `json:"due_date"`
	DueToday  bool                            `json:"due_today"`
	Overdue   bool                            `json:"overdue"`
	DaysToDue int                             `json:"days_to_due"`
}

type Summary struct {
	TotalRevenue    int64                           `json:"total_revenue"`
	UnpaidRevenue   int64                           `json:"unpaid_revenue"`
	CashRevenue     int64                           `json:"cash_revenue"`
	TransferRevenue int64                           `json:"transfer_revenue"`
	Usage           map[meteringdomain.Kind]float64 `json:"usage"`
	PaidCount       int                             `json:"paid_count"`
	UnpaidCount     int                             `json:"unpaid_count"`
	NoCostCount     int                             `json:"no_cost_count"`
	// RoomsWithData counts rooms with any positive usage in the month.
	RoomsWithData int `json:"rooms_with_data"`
	// TenantedRooms counts rooms with a contact phone.
	TenantedRooms int `json:"tenanted_rooms"`
	OverdueRooms  int `json:"overdue_rooms"`
	// PaymentRate is the rounded percentage of tenanted rooms that paid.
	PaymentRate int `json:"payment_rate"`
}

type Statement struct {
	BuildingID string                  `json:"building_id"`
	Month      meteringdomain.MonthKey `json:"month"`
	Rows       []Row                   `json:"rows"`
	Summary    Summary                 `json:"summary"`
}

// RoomUsage is the detail view of one room for one month.
type RoomUsage struct {
	BuildingID string                                              `json:"building_id"`
	RoomID     string                                              `json:"room_id"`
	Month      meteringdomain.MonthKey                             `json:"month"`
	Usage      map[meteringdomain.Kind]float64                     `json:"usage"`
	Cost       map[meteringdomain.Kind]int64                       `json:"cost"`
	Total      int64                                               `json:"total"`
	Daily      map[meteringdomain.Kind][]meteringdomain.DailyDelta `json:"daily"`
	Settlement *paymentdomain.Record                               `json:"settlement,omitempty"`
}

// UsageSeries charts day-over-day consumption across a date range, for one
// room or summed over the building when RoomID is empty.
type UsageSeries struct {
	BuildingID string                                              `json:"building_id"`
	RoomID     string                                              `json:"room_id,omitempty"`
	From       string                                              `json:"from"`
	To         string                                              `json:"to"`
	Rooms      []string                                            `json:"rooms"`
	Series     map[meteringdomain.Kind][]meteringdomain.DailyDelta `json:"series"`
}

type Service interface {
	Statement(ctx context.Context, buildingID string, month meteringdomain.MonthKey) (*Statement, error)
	RoomUsage(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey) (*RoomUsage, error)
	// UsageSeries fills a zero usage for every pair of days lacking readings
	// so the series always has one point per day after the first.
	UsageSeries(ctx context.Context, buildingID, roomID string, r meteringdomain.DateRange) (*UsageSeries, error)
}
