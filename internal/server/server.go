// Package server exposes the billing services over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	arrearsdomain "github.com/railzwaylabs/roomledger/internal/arrears/domain"
	"github.com/railzwaylabs/roomledger/internal/authorization"
	billingdomain "github.com/railzwaylabs/roomledger/internal/billing/domain"
	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RegisterLifecycle),
)

type Server struct {
	cfg    config.Config
	log    *zap.Logger
	engine *gin.Engine
	clock  clock.Clock
	authz  *authorization.Authorizer

	roomSvc    roomdomain.Service
	priceSvc   pricedomain.Service
	paymentSvc paymentdomain.Service
	billingSvc billingdomain.Service
	arrearsSvc arrearsdomain.Service
}

type ServerParam struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Authz      *authorization.Authorizer
	RoomSvc    roomdomain.Service
	PriceSvc   pricedomain.Service
	PaymentSvc paymentdomain.Service
	BillingSvc billingdomain.Service
	ArrearsSvc arrearsdomain.Service
}

func NewServer(p ServerParam) *Server {
	if !p.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:        p.Config,
		log:        p.Log.Named("server"),
		engine:     gin.New(),
		clock:      p.Clock,
		authz:      p.Authz,
		roomSvc:    p.RoomSvc,
		priceSvc:   p.PriceSvc,
		paymentSvc: p.PaymentSvc,
		billingSvc: p.BillingSvc,
		arrearsSvc: p.ArrearsSvc,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), s.RequestID(), s.AccessLog(), s.Metrics())
	if s.cfg.IsDevelopment() {
		r.Use(s.SimulatedTime())
	}

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/buildings/:building_id", s.authz.Authenticate())
	{
		read := s.authz.Require(authorization.ActionRead)
		api.GET("/rooms", read, s.ListRooms)
		api.GET("/rooms/:room_id", read, s.GetRoom)
		api.GET("/rooms/:room_id/usage", read, s.GetRoomUsage)
		api.GET("/rooms/:room_id/calibration", read, s.GetCalibration)
		api.PUT("/rooms/:room_id/calibration", s.authz.Require(authorization.ActionCalibrate), s.UpdateCalibration)
		api.GET("/usage-series", read, s.GetUsageSeries)
		api.GET("/billing", read, s.GetStatement)
		api.GET("/arrears", read, s.GetArrears)
		api.GET("/payments/:room_id/:month", read, s.GetSettlement)
		api.POST("/payments", s.authz.Require(authorization.ActionPay), s.MarkPaid)
		api.GET("/rates", read, s.GetRates)
		api.PUT("/rates", s.authz.Require(authorization.ActionManageRates), s.UpdateRates)
	}
}

// RegisterLifecycle serves HTTP between fx start and stop.
func RegisterLifecycle(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// @Summary      Health
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.AppVersion})
}
