package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/railzwaylabs/roomledger/internal/clock"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"github.com/railzwaylabs/roomledger/internal/room/repository"
	"github.com/railzwaylabs/roomledger/internal/room/service"
	"github.com/railzwaylabs/roomledger/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seed() *memory.Store {
	return memory.Seed(map[string]any{
		"buildings": map[string]any{
			"b1": map[string]any{
				"rooms": map[string]any{
					"101": map[string]any{
						"phone": "0901000101",
						"nodes": map[string]any{
							"elec_101": map[string]any{"lastData": map[string]any{"electric": 10}},
							"meter_x":  map[string]any{"type": "water", "customName": "Nuoc"},
						},
						"history": map[string]any{
							"2024-01-31": map[string]any{"electric": 100, "water": 5},
							"2024-02-28": map[string]any{"electric": "130.5", "water": "n/a"},
						},
					},
					"102": map[string]any{"status": "maintenance"},
					"201": map[string]any{"nodes": map[string]any{"gw": map[string]any{"type": "custom"}}},
					"202": map[string]any{"history": map[string]any{"2024-01-01": map[string]any{"water": 1}}},
				},
			},
		},
		"phone_to_room": map[string]any{
			"0902000201": map[string]any{"buildingId": "b1", "roomId": "201", "name": "Lan", "isRepresentative": false},
			"0903000201": map[string]any{"buildingId": "b1", "roomId": "201", "name": "Minh", "isRepresentative": true},
			"0904000101": map[string]any{"buildingId": "b2", "roomId": "202", "name": "Other"},
		},
	})
}

var calibratedAt = time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC)

func newService() roomdomain.Service {
	return newServiceOver(seed())
}

func newServiceOver(st *memory.Store) roomdomain.Service {
	return service.New(service.ServiceParam{Log: zap.NewNop(), Repo: repository.Provide(st), Clock: clock.Fixed(calibratedAt)})
}

func TestGetResolvesStatusAndNodes(t *testing.T) {
	room, err := newService().Get(context.Background(), "b1", "101")
	require.NoError(t, err)

	assert.Equal(t, roomdomain.StatusOccupied, room.Status)
	assert.False(t, room.StatusExplicit)
	assert.Equal(t, "1", room.Floor())
	require.Len(t, room.Nodes, 2)
	assert.Equal(t, roomdomain.Node{ID: "elec_101", Name: "elec_101", Type: roomdomain.NodeUnassigned}, room.Nodes[0])
	assert.Equal(t, roomdomain.Node{ID: "meter_x", Name: "Nuoc", Type: roomdomain.NodeWater}, room.Nodes[1])
}

func TestGetUsesDirectoryTenants(t *testing.T) {
	room, err := newService().Get(context.Background(), "b1", "201")
	require.NoError(t, err)

	assert.Equal(t, roomdomain.StatusOccupied, room.Status)
	require.Len(t, room.Tenants, 2)
	assert.Equal(t, "Minh", room.Tenants[0].Name)
	assert.Equal(t, "0903000201", room.ContactPhone())
}

func TestGetErrors(t *testing.T) {
	svc := newService()

	_, err := svc.Get(context.Background(), "b1", "999")
	assert.ErrorIs(t, err, roomdomain.ErrRoomNotFound)

	_, err = svc.Get(context.Background(), "b1", "../101")
	assert.ErrorIs(t, err, roomdomain.ErrInvalidRoom)

	_, err = svc.Get(context.Background(), "", "101")
	assert.ErrorIs(t, err, roomdomain.ErrInvalidBuilding)
}

func TestListStatuses(t *testing.T) {
	rooms, err := newService().List(context.Background(), "b1")
	require.NoError(t, err)

	got := map[string]roomdomain.Status{}
	for _, r := range rooms {
		got[r.ID] = r.Status
	}
	assert.Equal(t, map[string]roomdomain.Status{
		"101": roomdomain.StatusOccupied,
		"102": roomdomain.StatusMaintenance,
		"201": roomdomain.StatusOccupied,
		"202": roomdomain.StatusVacant,
	}, got)
}

func TestHistorySkipsNonNumericReadings(t *testing.T) {
	history, err := newService().History(context.Background(), "b1", "101")
	require.NoError(t, err)

	v, ok := history.Value("2024-02-28", meteringdomain.KindElectric)
	assert.True(t, ok)
	assert.Equal(t, 130.5, v)

	_, ok = history.Value("2024-02-28", meteringdomain.KindWater)
	assert.False(t, ok)
	assert.Equal(t, []string{"2024-01-31", "2024-02-28"}, history.Dates())
}

func TestHistoryOfEmptyRoom(t *testing.T) {
	history, err := newService().History(context.Background(), "b1", "102")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCalibrateWritesNodesOfType(t *testing.T) {
	st := seed()
	svc := newServiceOver(st)
	ctx := context.Background()

	res, err := svc.Calibrate(ctx, roomdomain.CalibrateRequest{
		BuildingID:  "b1",
		RoomID:      "101",
		Type:        roomdomain.NodeWater,
		SensorValue: 100,
		ActualValue: 125,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NodesUpdated)
	assert.Equal(t, 1.25, res.Calibration.Factor)

	stored, err := st.Read(ctx, "buildings/b1/rooms/101/nodes/meter_x/calibration")
	require.NoError(t, err)
	factor, _ := stored.Child("calibrationFactor").Float()
	assert.Equal(t, 1.25, factor)
	at, _ := stored.Child("calibratedAt").Float()
	assert.Equal(t, float64(calibratedAt.UnixMilli()), at)

	// The untyped meter keeps its data and gains nothing.
	elec, err := st.Read(ctx, "buildings/b1/rooms/101/nodes/elec_101")
	require.NoError(t, err)
	assert.Equal(t, []string{"lastData"}, elec.Keys())

	got, err := svc.Calibration(ctx, "b1", "101")
	require.NoError(t, err)
	water := got.Calibrations[roomdomain.NodeWater]
	assert.Equal(t, 1.25, water.Factor)
	assert.Equal(t, 100.0, water.SensorValue)
	require.NotNil(t, water.CalibratedAt)
	assert.True(t, calibratedAt.Equal(*water.CalibratedAt))
	assert.Equal(t, roomdomain.Uncalibrated(), got.Calibrations[roomdomain.NodeElectricity])

	room, err := svc.Get(ctx, "b1", "101")
	require.NoError(t, err)
	require.NotNil(t, room.Nodes[1].Calibration)
	assert.Equal(t, 1.25, room.Nodes[1].Calibration.Factor)
}

func TestCalibrateRoomWithoutMatchingNodes(t *testing.T) {
	res, err := newService().Calibrate(context.Background(), roomdomain.CalibrateRequest{
		BuildingID:  "b1",
		RoomID:      "201",
		Type:        roomdomain.NodeElectricity,
		SensorValue: 3,
		ActualValue: 2,
	})
	require.NoError(t, err)
	assert.Zero(t, res.NodesUpdated)
	assert.Equal(t, 0.6667, res.Calibration.Factor)
}

func TestCalibrateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	valid := roomdomain.CalibrateRequest{BuildingID: "b1", RoomID: "101", Type: roomdomain.NodeWater, SensorValue: 1, ActualValue: 1}

	cases := []struct {
		name   string
		mutate func(*roomdomain.CalibrateRequest)
		want   error
	}{
		{"custom node type", func(r *roomdomain.CalibrateRequest) { r.Type = roomdomain.NodeCustom }, roomdomain.ErrInvalidCalibration},
		{"zero sensor value", func(r *roomdomain.CalibrateRequest) { r.SensorValue = 0 }, roomdomain.ErrInvalidCalibration},
		{"negative actual value", func(r *roomdomain.CalibrateRequest) { r.ActualValue = -4 }, roomdomain.ErrInvalidCalibration},
		{"missing room", func(r *roomdomain.CalibrateRequest) { r.RoomID = "999" }, roomdomain.ErrRoomNotFound},
		{"bad room id", func(r *roomdomain.CalibrateRequest) { r.RoomID = "1/01" }, roomdomain.ErrInvalidRoom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			_, err := svc.Calibrate(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := svc.Calibration(ctx, "b1", "999")
	assert.ErrorIs(t, err, roomdomain.ErrRoomNotFound)
}
