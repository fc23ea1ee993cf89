package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	arrearsdomain "github.com/railzwaylabs/roomledger/internal/arrears/domain"
	"github.com/railzwaylabs/roomledger/internal/arrears/service"
	"github.com/railzwaylabs/roomledger/internal/ledgertest"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRooms struct {
	mock.Mock
}

func (m *MockRooms) Get(ctx context.Context, buildingID, roomID string) (*roomdomain.Room, error) {
	args := m.Called(ctx, buildingID, roomID)
	room, _ := args.Get(0).(*roomdomain.Room)
	return room, args.Error(1)
}

func (m *MockRooms) List(ctx context.Context, buildingID string) ([]roomdomain.Room, error) {
	args := m.Called(ctx, buildingID)
	rooms, _ := args.Get(0).([]roomdomain.Room)
	return rooms, args.Error(1)
}

func (m *MockRooms) ListIDs(ctx context.Context, buildingID string) ([]string, error) {
	args := m.Called(ctx, buildingID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockRooms) History(ctx context.Context, buildingID, roomID string) (meteringdomain.History, error) {
	args := m.Called(ctx, buildingID, roomID)
	h, _ := args.Get(0).(meteringdomain.History)
	return h, args.Error(1)
}

func (m *MockRooms) Calibrate(ctx context.Context, req roomdomain.CalibrateRequest) (*roomdomain.CalibrateResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*roomdomain.CalibrateResult)
	return res, args.Error(1)
}

func (m *MockRooms) Calibration(ctx context.Context, buildingID, roomID string) (*roomdomain.RoomCalibration, error) {
	args := m.Called(ctx, buildingID, roomID)
	c, _ := args.Get(0).(*roomdomain.RoomCalibration)
	return c, args.Error(1)
}

var now = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

func settlements() map[string]any {
	paid := map[string]any{"status": "PAID", "amount": 1000, "method": "cash"}
	return map[string]any{
		"buildings": map[string]any{
			"b1": map[string]any{
				"rooms": map[string]any{
					"101": map[string]any{
						"payments": map[string]any{"2024-04": paid},
					},
					"102": map[string]any{
						"payments": map[string]any{"2024-02": paid, "2024-04": paid},
						"payment":  map[string]any{"2024-03": paid},
					},
				},
			},
		},
	}
}

func history(values map[string]float64) meteringdomain.History {
	h := meteringdomain.History{}
	for date, v := range values {
		h.Set(date, meteringdomain.KindElectric, v)
	}
	return h
}

func newService(t *testing.T, rooms *MockRooms) arrearsdomain.Service {
	t.Helper()
	env := ledgertest.New(t, settlements(), now)
	return service.NewService(service.ServiceParam{
		Log:      env.Log,
		Rooms:    rooms,
		Prices:   env.Prices,
		Rating:   env.Rating,
		Payments: env.Payments,
		Clock:    env.Clock,
		Config:   env.Config,
	})
}

func TestScanCountsUnpaidNonZeroMonths(t *testing.T) {
	ctx := context.Background()
	rooms := new(MockRooms)
	rooms.On("List", mock.Anything, "b1").Return([]roomdomain.Room{
		{ID: "101", BuildingID: "b1", Status: roomdomain.StatusOccupied},
		{ID: "102", BuildingID: "b1", Status: roomdomain.StatusOccupied},
		{ID: "103", BuildingID: "b1", Status: roomdomain.StatusVacant},
		{ID: "104", BuildingID: "b1", Status: roomdomain.StatusOccupied},
	}, nil)
	rooms.On("History", mock.Anything, "b1", "101").Return(history(map[string]float64{
		"2024-01-31": 100,
		"2024-02-29": 150,
		"2024-03-31": 150,
		"2024-04-30": 200,
	}), nil).Once()
	rooms.On("History", mock.Anything, "b1", "104").Return(history(map[string]float64{
		"2024-03-31": 10,
		"2024-04-30": 12,
	}), nil).Once()

	got, err := newService(t, rooms).Scan(ctx, "b1", 3)
	require.NoError(t, err)

	assert.Equal(t, []arrearsdomain.MonthArrears{
		{Month: meteringdomain.NewMonthKey(2024, time.April), Label: "4/2024", Count: 1},
		{Month: meteringdomain.NewMonthKey(2024, time.February), Label: "2/2024", Count: 1},
	}, got)

	rooms.AssertExpectations(t)
	rooms.AssertNotCalled(t, "History", mock.Anything, "b1", "102")
	rooms.AssertNotCalled(t, "History", mock.Anything, "b1", "103")
}

func TestScanSkipsHistoryWhenEveryMonthIsSettled(t *testing.T) {
	rooms := new(MockRooms)
	rooms.On("List", mock.Anything, "b1").Return([]roomdomain.Room{
		{ID: "102", BuildingID: "b1", Status: roomdomain.StatusOccupied},
	}, nil)

	got, err := newService(t, rooms).Scan(context.Background(), "b1", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	rooms.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything)
}

func TestScanWindowCrossesYear(t *testing.T) {
	rooms := new(MockRooms)
	rooms.On("List", mock.Anything, "b1").Return([]roomdomain.Room{
		{ID: "104", BuildingID: "b1", Status: roomdomain.StatusOccupied},
	}, nil)
	rooms.On("History", mock.Anything, "b1", "104").Return(history(map[string]float64{
		"2023-11-30": 1,
		"2023-12-31": 4,
	}), nil).Once()

	env := ledgertest.New(t, settlements(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	svc := service.NewService(service.ServiceParam{
		Log:      env.Log,
		Rooms:    rooms,
		Prices:   env.Prices,
		Rating:   env.Rating,
		Payments: env.Payments,
		Clock:    env.Clock,
		Config:   env.Config,
	})

	got, err := svc.Scan(context.Background(), "b1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2023-12", got[0].Month.String())
	assert.Equal(t, "12/2023", got[0].Label)
}

func TestScanPropagatesStorageErrors(t *testing.T) {
	boom := errors.New("storage down")
	rooms := new(MockRooms)
	rooms.On("List", mock.Anything, "b1").Return(nil, boom)

	_, err := newService(t, rooms).Scan(context.Background(), "b1", 3)
	assert.ErrorIs(t, err, boom)
}
