package service

import (
	"context"
	"math"
	"sort"
	"time"

	billingdomain "github.com/railzwaylabs/roomledger/internal/billing/domain"
	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	meteringservice "github.com/railzwaylabs/roomledger/internal/metering/service"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const roomConcurrency = 8

type Service struct {
	log      *zap.Logger
	rooms    roomdomain.Service
	prices   pricedomain.Service
	rating   ratingdomain.Service
	payments paymentdomain.Service
	clock    clock.Clock
	config   *config.Source
}

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Rooms    roomdomain.Service
	Prices   pricedomain.Service
	Rating   ratingdomain.Service
	Payments paymentdomain.Service
	Clock    clock.Clock
	Config   *config.Source
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		log:      p.Log.Named("billing.service"),
		rooms:    p.Rooms,
		prices:   p.Prices,
		rating:   p.Rating,
		payments: p.Payments,
		clock:    p.Clock,
		config:   p.Config,
	}
}

func (s *Service) Statement(ctx context.Context, buildingID string, month meteringdomain.MonthKey) (*billingdomain.Statement, error) {
	rooms, err := s.rooms.List(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	table, err := s.prices.GetRates(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	today := s.today(ctx)

	rows := make([]billingdomain.Row, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(roomConcurrency)
	for i, room := range rooms {
		g.Go(func() error {
			row, err := s.row(gctx, room, month, table.Rates, today)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].RoomID < rows[j].RoomID })
	return &billingdomain.Statement{
		BuildingID: buildingID,
		Month:      month,
		Rows:       rows,
		Summary:    summarize(rows),
	}, nil
}

func (s *Service) row(ctx context.Context, room roomdomain.Room, month meteringdomain.MonthKey, rates ratingdomain.Rates, today time.Time) (billingdomain.Row, error) {
	history, err := s.rooms.History(ctx, room.BuildingID, room.ID)
	if err != nil {
		return billingdomain.Row{}, err
	}
	charge := s.rating.Charge(history, month, rates)

	due := month.DueDate()
	row := billingdomain.Row{
		RoomID:    room.ID,
		Floor:     room.Floor(),
		Phone:     room.ContactPhone(),
		Occupancy: room.Status,
		Tenants:   room.Tenants,
		Usage:     roundUsage(charge.Usage),
		Cost:      charge.Cost,
		Total:     charge.Total,
		Status:    billingdomain.ChargeUnpaid,
		DueDate:   due,
		DaysToDue: daysBetween(today, due),
	}
	row.DueToday = row.DaysToDue == 0

	if charge.Total == 0 {
		row.Status = billingdomain.ChargeNoCost
		return row, nil
	}

	rec, err := s.payments.GetSettlement(ctx, room.BuildingID, room.ID, month)
	if err != nil {
		return billingdomain.Row{}, err
	}
	if rec != nil {
		row.Method = rec.Method
		if row.Method == "" {
			row.Method = paymentdomain.MethodTransfer
		}
	}
	if rec.Paid() {
		row.Status = billingdomain.ChargePaid
		row.PaidAt = rec.PaidAt
		return row, nil
	}
	row.Overdue = month.IsOverdue(today)
	return row, nil
}

func (s *Service) RoomUsage(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey) (*billingdomain.RoomUsage, error) {
	if _, err := s.rooms.Get(ctx, buildingID, roomID); err != nil {
		return nil, err
	}
	table, err := s.prices.GetRates(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	history, err := s.rooms.History(ctx, buildingID, roomID)
	if err != nil {
		return nil, err
	}
	rec, err := s.payments.GetSettlement(ctx, buildingID, roomID, month)
	if err != nil {
		return nil, err
	}

	charge := s.rating.Charge(history, month, table.Rates)
	daily := make(map[meteringdomain.Kind][]meteringdomain.DailyDelta, len(meteringdomain.Kinds))
	for _, kind := range table.Rates.BilledKinds() {
		daily[kind] = meteringservice.DailyDeltas(history, kind, &month)
	}
	return &billingdomain.RoomUsage{
		BuildingID: buildingID,
		RoomID:     roomID,
		Month:      month,
		Usage:      roundUsage(charge.Usage),
		Cost:       charge.Cost,
		Total:      charge.Total,
		Daily:      daily,
		Settlement: rec,
	}, nil
}

func (s *Service) UsageSeries(ctx context.Context, buildingID, roomID string, r meteringdomain.DateRange) (*billingdomain.UsageSeries, error) {
	out := &billingdomain.UsageSeries{
		BuildingID: buildingID,
		RoomID:     roomID,
		From:       r.From.Format(time.DateOnly),
		To:         r.To.Format(time.DateOnly),
		Series:     make(map[meteringdomain.Kind][]meteringdomain.DailyDelta, len(meteringdomain.Kinds)),
	}

	var roomIDs []string
	if roomID != "" {
		if _, err := s.rooms.Get(ctx, buildingID, roomID); err != nil {
			return nil, err
		}
		roomIDs = []string{roomID}
	} else {
		ids, err := s.rooms.ListIDs(ctx, buildingID)
		if err != nil {
			return nil, err
		}
		roomIDs = ids
	}
	out.Rooms = roomIDs

	histories := make([]meteringdomain.History, len(roomIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(roomConcurrency)
	for i, id := range roomIDs {
		g.Go(func() error {
			h, err := s.rooms.History(gctx, buildingID, id)
			if err != nil {
				return err
			}
			histories[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, kind := range meteringdomain.Kinds {
		series := meteringservice.RangeDeltas(nil, kind, r)
		for _, h := range histories {
			series = meteringservice.SumDeltas(series, meteringservice.RangeDeltas(h, kind, r))
		}
		for i := range series {
			series[i].Usage = round2(series[i].Usage)
		}
		out.Series[kind] = series
	}
	return out, nil
}

// today is the current calendar date in the billing timezone.
func (s *Service) today(ctx context.Context) time.Time {
	return s.clock.Now(ctx).In(s.config.Billing().Location())
}

func summarize(rows []billingdomain.Row) billingdomain.Summary {
	sum := billingdomain.Summary{Usage: map[meteringdomain.Kind]float64{}}
	for _, row := range rows {
		hasData := false
		for kind, v := range row.Usage {
			sum.Usage[kind] += v
			if v > 0 {
				hasData = true
			}
		}
		if hasData {
			sum.RoomsWithData++
		}
		if row.Phone != "" {
			sum.TenantedRooms++
		}
		switch row.Status {
		case billingdomain.ChargeNoCost:
			sum.NoCostCount++
		case billingdomain.ChargePaid:
			sum.PaidCount++
			sum.TotalRevenue += row.Total
			switch row.Method {
			case paymentdomain.MethodCash:
				sum.CashRevenue += row.Total
			case paymentdomain.MethodTransfer:
				sum.TransferRevenue += row.Total
			}
		case billingdomain.ChargeUnpaid:
			sum.UnpaidCount++
			sum.UnpaidRevenue += row.Total
			if row.Overdue {
				sum.OverdueRooms++
			}
		}
	}
	for kind, v := range sum.Usage {
		sum.Usage[kind] = round2(v)
	}
	if sum.TenantedRooms > 0 {
		sum.PaymentRate = int(math.Round(float64(sum.PaidCount) / float64(sum.TenantedRooms) * 100))
	}
	return sum
}

func roundUsage(usage map[meteringdomain.Kind]float64) map[meteringdomain.Kind]float64 {
	out := make(map[meteringdomain.Kind]float64, len(usage))
	for kind, v := range usage {
		out[kind] = round2(v)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// daysBetween counts calendar days from today to due, negative once due has
// passed.
func daysBetween(today, due time.Time) int {
	y, m, d := today.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(due.Sub(from).Hours() / 24)
}
