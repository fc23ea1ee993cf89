package server

import (
	"github.com/gin-gonic/gin"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
)

type calibrationRequest struct {
	Type        string   `json:"type" binding:"required"`
	SensorValue *float64 `json:"sensor_value" binding:"required"`
	ActualValue *float64 `json:"actual_value" binding:"required"`
}

// @Summary      List Rooms
// @Description  List the rooms of a building with their resolved occupancy
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string  true  "Building ID"
// @Success      200  {object}  DataResponse
// @Router       /api/buildings/{building_id}/rooms [get]
func (s *Server) ListRooms(c *gin.Context) {
	rooms, err := s.roomSvc.List(c.Request.Context(), c.Param("building_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, rooms)
}

// @Summary      Get Room
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string  true  "Building ID"
// @Param        room_id      path  string  true  "Room ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/rooms/{room_id} [get]
func (s *Server) GetRoom(c *gin.Context) {
	room, err := s.roomSvc.Get(c.Request.Context(), c.Param("building_id"), c.Param("room_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, room)
}

// @Summary      Get Calibration
// @Description  Calibration factor of the electricity and water meters of a room
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string  true  "Building ID"
// @Param        room_id      path  string  true  "Room ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/rooms/{room_id}/calibration [get]
func (s *Server) GetCalibration(c *gin.Context) {
	calibration, err := s.roomSvc.Calibration(c.Request.Context(), c.Param("building_id"), c.Param("room_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, calibration)
}

// @Summary      Update Calibration
// @Description  Record a meter reading against the physical meter and apply the factor to every meter of that type in the room
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string              true  "Building ID"
// @Param        room_id      path  string              true  "Room ID"
// @Param        request      body  calibrationRequest  true  "Calibration Request"
// @Success      200  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/rooms/{room_id}/calibration [put]
func (s *Server) UpdateCalibration(c *gin.Context) {
	var req calibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	nodeType := roomdomain.NodeType(req.Type)
	if !nodeType.Metered() {
		AbortWithError(c, newValidationError("type", "invalid_type", "type must be electricity or water"))
		return
	}

	result, err := s.roomSvc.Calibrate(c.Request.Context(), roomdomain.CalibrateRequest{
		BuildingID:  c.Param("building_id"),
		RoomID:      c.Param("room_id"),
		Type:        nodeType,
		SensorValue: *req.SensorValue,
		ActualValue: *req.ActualValue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}
