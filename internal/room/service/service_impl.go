package service

import (
	"context"
	"fmt"

	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/layout"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	repo  roomdomain.Repository
	clock clock.Clock
}

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Repo  roomdomain.Repository
	Clock clock.Clock
}

func New(p ServiceParam) roomdomain.Service {
	return &Service{
		log:   p.Log.Named("room.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, buildingID, roomID string) (*roomdomain.Room, error) {
	if err := validate(buildingID, roomID); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx, buildingID, roomID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, roomdomain.ErrRoomNotFound
	}
	tenants, err := s.repo.Tenants(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	room := assemble(buildingID, profile, tenants[roomID])
	return &room, nil
}

func (s *Service) List(ctx context.Context, buildingID string) ([]roomdomain.Room, error) {
	if err := layout.ValidID(buildingID); err != nil {
		return nil, roomdomain.ErrInvalidBuilding
	}
	ids, err := s.repo.ListIDs(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	tenants, err := s.repo.Tenants(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	rooms := make([]roomdomain.Room, 0, len(ids))
	for _, id := range ids {
		profile, err := s.repo.GetProfile(ctx, buildingID, id)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			// Removed between listing and reading.
			continue
		}
		rooms = append(rooms, assemble(buildingID, profile, tenants[id]))
	}
	return rooms, nil
}

func (s *Service) ListIDs(ctx context.Context, buildingID string) ([]string, error) {
	if err := layout.ValidID(buildingID); err != nil {
		return nil, roomdomain.ErrInvalidBuilding
	}
	return s.repo.ListIDs(ctx, buildingID)
}

func (s *Service) History(ctx context.Context, buildingID, roomID string) (meteringdomain.History, error) {
	if err := validate(buildingID, roomID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, buildingID, roomID)
}

func (s *Service) Calibrate(ctx context.Context, req roomdomain.CalibrateRequest) (*roomdomain.CalibrateResult, error) {
	if err := validate(req.BuildingID, req.RoomID); err != nil {
		return nil, err
	}
	if !req.Type.Metered() {
		return nil, fmt.Errorf("%w: node type %q", roomdomain.ErrInvalidCalibration, req.Type)
	}
	calibration, err := roomdomain.NewCalibration(req.SensorValue, req.ActualValue, s.clock.Now(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: sensor and actual values must be positive", err)
	}

	profile, err := s.repo.GetProfile(ctx, req.BuildingID, req.RoomID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, roomdomain.ErrRoomNotFound
	}
	var nodeIDs []string
	for _, node := range profile.Nodes {
		if node.Type == req.Type {
			nodeIDs = append(nodeIDs, node.ID)
		}
	}
	if err := s.repo.SetCalibration(ctx, req.BuildingID, req.RoomID, nodeIDs, calibration); err != nil {
		return nil, err
	}

	s.log.Info("room calibrated",
		zap.String("building", req.BuildingID),
		zap.String("room", req.RoomID),
		zap.String("type", string(req.Type)),
		zap.Float64("factor", calibration.Factor),
		zap.Int("nodes", len(nodeIDs)),
	)
	return &roomdomain.CalibrateResult{
		RoomID:       req.RoomID,
		Type:         req.Type,
		Calibration:  calibration,
		NodesUpdated: len(nodeIDs),
	}, nil
}

// Calibration reports the stored calibration per metered node type. When
// several nodes of a type carry one, the last node by id wins.
func (s *Service) Calibration(ctx context.Context, buildingID, roomID string) (*roomdomain.RoomCalibration, error) {
	if err := validate(buildingID, roomID); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx, buildingID, roomID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, roomdomain.ErrRoomNotFound
	}

	out := &roomdomain.RoomCalibration{
		RoomID: roomID,
		Calibrations: map[roomdomain.NodeType]roomdomain.Calibration{
			roomdomain.NodeElectricity: roomdomain.Uncalibrated(),
			roomdomain.NodeWater:       roomdomain.Uncalibrated(),
		},
	}
	for _, node := range profile.Nodes {
		if node.Type.Metered() && node.Calibration != nil {
			out.Calibrations[node.Type] = *node.Calibration
		}
	}
	return out, nil
}

func assemble(buildingID string, profile *roomdomain.Profile, tenants []roomdomain.Tenant) roomdomain.Room {
	status, explicit := roomdomain.ResolveStatus(profile.Status, profile.Phone, len(tenants))
	return roomdomain.Room{
		ID:             profile.ID,
		BuildingID:     buildingID,
		Status:         status,
		StatusExplicit: explicit,
		Phone:          profile.Phone,
		Tenants:        tenants,
		Nodes:          profile.Nodes,
	}
}

func validate(buildingID, roomID string) error {
	if err := layout.ValidID(buildingID); err != nil {
		return roomdomain.ErrInvalidBuilding
	}
	if err := layout.ValidID(roomID); err != nil {
		return roomdomain.ErrInvalidRoom
	}
	return nil
}
