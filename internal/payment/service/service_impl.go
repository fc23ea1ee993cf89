package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/roomledger/internal/clock"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	"github.com/railzwaylabs/roomledger/internal/observability"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	ratingdomain "github.com/railzwaylabs/roomledger/internal/rating/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log    *zap.Logger
	repo   paymentdomain.Repository
	rooms  roomdomain.Service
	prices pricedomain.Service
	rating ratingdomain.Service
	clock  clock.Clock
	genID  *snowflake.Node
}

type ServiceParam struct {
	fx.In

	Log    *zap.Logger
	Repo   paymentdomain.Repository
	Rooms  roomdomain.Service
	Prices pricedomain.Service
	Rating ratingdomain.Service
	Clock  clock.Clock
	GenID  *snowflake.Node
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		log:    p.Log.Named("payment.service"),
		repo:   p.Repo,
		rooms:  p.Rooms,
		prices: p.Prices,
		rating: p.Rating,
		clock:  p.Clock,
		genID:  p.GenID,
	}
}

func (s *Service) GetSettlement(ctx context.Context, buildingID, roomID string, month meteringdomain.MonthKey) (*paymentdomain.Record, error) {
	return s.repo.Get(ctx, buildingID, roomID, month)
}

func (s *Service) MarkPaid(ctx context.Context, req paymentdomain.MarkPaidRequest) (*paymentdomain.Record, error) {
	ctx, span := observability.Tracer().Start(ctx, "payment.MarkPaid")
	defer span.End()
	span.SetAttributes(
		attribute.String("building", req.BuildingID),
		attribute.String("room", req.RoomID),
		attribute.String("month", req.Month),
	)

	start := time.Now()
	rec, reason, err := s.markPaid(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		observability.ObservePaymentRejected(reason, time.Since(start))
		s.log.Warn("mark paid rejected",
			zap.String("building", req.BuildingID),
			zap.String("room", req.RoomID),
			zap.String("month", req.Month),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil, err
	}

	observability.ObservePaymentMarked(string(rec.Method), time.Since(start))
	s.log.Info("payment recorded",
		zap.String("id", rec.ID),
		zap.String("building", rec.BuildingID),
		zap.String("room", rec.RoomID),
		zap.String("month", rec.Month.String()),
		zap.String("method", string(rec.Method)),
		zap.Int64("amount", rec.Amount),
		zap.String("paid_by", rec.PaidBy),
	)
	return rec, nil
}

// markPaid returns the rejection reason alongside any error.
func (s *Service) markPaid(ctx context.Context, req paymentdomain.MarkPaidRequest) (*paymentdomain.Record, string, error) {
	method, ok := paymentdomain.ParseMethod(req.Method)
	if !ok {
		return nil, "invalid_method", fmt.Errorf("%w: payment method %q", paymentdomain.ErrInvalidArgument, req.Method)
	}
	month, err := meteringdomain.ParseMonthKey(req.Month)
	if err != nil {
		return nil, "invalid_month", fmt.Errorf("%w: %v", paymentdomain.ErrInvalidArgument, err)
	}
	if req.ClientAmount != nil && *req.ClientAmount < 0 {
		return nil, "invalid_amount", fmt.Errorf("%w: amount must not be negative", paymentdomain.ErrInvalidArgument)
	}

	if _, err := s.rooms.Get(ctx, req.BuildingID, req.RoomID); err != nil {
		switch {
		case errors.Is(err, roomdomain.ErrRoomNotFound):
			return nil, "room_not_found", err
		case errors.Is(err, roomdomain.ErrInvalidBuilding), errors.Is(err, roomdomain.ErrInvalidRoom):
			return nil, "invalid_room", fmt.Errorf("%w: %v", paymentdomain.ErrInvalidArgument, err)
		}
		return nil, "error", err
	}

	existing, err := s.repo.Get(ctx, req.BuildingID, req.RoomID, month)
	if err != nil {
		return nil, "error", err
	}
	if existing.Paid() {
		return nil, "already_paid", paymentdomain.ErrAlreadyPaid
	}

	table, err := s.prices.GetRates(ctx, req.BuildingID)
	if err != nil {
		return nil, "error", err
	}
	history, err := s.rooms.History(ctx, req.BuildingID, req.RoomID)
	if err != nil {
		return nil, "error", err
	}
	charge := s.rating.Charge(history, month, table.Rates)

	amount := charge.Total
	if req.ClientAmount != nil && *req.ClientAmount > 0 {
		amount = *req.ClientAmount
		if amount != charge.Total {
			s.log.Info("client amount differs from recomputed charge",
				zap.String("room", req.RoomID),
				zap.String("month", month.String()),
				zap.Int64("client_amount", amount),
				zap.Int64("computed", charge.Total),
			)
		}
	}

	paidBy := req.PaidBy
	if paidBy == "" {
		paidBy = paymentdomain.DefaultPaidBy
	}
	paidAt := s.clock.Now(ctx).UTC()
	rec := &paymentdomain.Record{
		ID:         s.genID.Generate().String(),
		BuildingID: req.BuildingID,
		RoomID:     req.RoomID,
		Month:      month,
		Amount:     amount,
		Status:     paymentdomain.StatusPaid,
		Method:     method,
		Usage:      charge.Usage,
		Cost:       charge.Cost,
		PaidBy:     paidBy,
		PaidAt:     &paidAt,
		Note:       req.Note,
	}

	settled, err := s.repo.Settle(ctx, rec)
	if err != nil {
		return nil, "error", err
	}
	if !settled {
		return nil, "already_paid", paymentdomain.ErrAlreadyPaid
	}
	return rec, "", nil
}
