package domain

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidCalibration = errors.New("invalid_calibration")

// Calibration scales the readings of a room's meters of one type. Factor is
// ActualValue / SensorValue rounded to four decimals.
type Calibration struct {
	SensorValue  float64    `json:"sensor_value"`
	ActualValue  float64    `json:"actual_value"`
	Factor       float64    `json:"calibration_factor"`
	CalibratedAt *time.Time `json:"calibrated_at"`
}

// Uncalibrated is reported for a meter type that was never calibrated.
func Uncalibrated() Calibration {
	return Calibration{Factor: 1}
}

// NewCalibration derives the factor from a meter reading and the value read
// off the physical meter at the same moment.
func NewCalibration(sensor, actual float64, at time.Time) (Calibration, error) {
	if !(sensor > 0) || !(actual > 0) || math.IsInf(sensor, 0) || math.IsInf(actual, 0) {
		return Calibration{}, ErrInvalidCalibration
	}
	at = at.UTC()
	return Calibration{
		SensorValue:  sensor,
		ActualValue:  actual,
		Factor:       math.Round(actual/sensor*10000) / 10000,
		CalibratedAt: &at,
	}, nil
}

type CalibrateRequest struct {
	BuildingID  string
	RoomID      string
	Type        NodeType
	SensorValue float64
	ActualValue float64
}

type CalibrateResult struct {
	RoomID       string      `json:"room_id"`
	Type         NodeType    `json:"type"`
	Calibration  Calibration `json:"calibration"`
	NodesUpdated int         `json:"nodes_updated"`
}

// RoomCalibration lists the calibration of each metered node type of a room.
type RoomCalibration struct {
	RoomID       string                   `json:"room_id"`
	Calibrations map[NodeType]Calibration `json:"calibrations"`
}
