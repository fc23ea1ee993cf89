package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/roomledger/internal/authorization"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
)

type markPaidRequest struct {
	RoomID string `json:"room_id"`
	Month  string `json:"month"`
	Method string `json:"method"`
	// Amount is optional; the recomputed charge is stored when absent.
	Amount *int64 `json:"amount"`
	Note   string `json:"note"`
}

// @Summary      Mark Paid
// @Description  Record the settlement of one room for one month
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string           true  "Building ID"
// @Param        request      body  markPaidRequest  true  "Mark Paid Request"
// @Success      201  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/payments [post]
func (s *Server) MarkPaid(c *gin.Context) {
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	rec, err := s.paymentSvc.MarkPaid(ctx, paymentdomain.MarkPaidRequest{
		BuildingID:   c.Param("building_id"),
		RoomID:       strings.TrimSpace(req.RoomID),
		Month:        strings.TrimSpace(req.Month),
		Method:       req.Method,
		ClientAmount: req.Amount,
		Note:         strings.TrimSpace(req.Note),
		PaidBy:       authorization.SubjectFromContext(ctx),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, rec)
}

// @Summary      Get Settlement
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string  true  "Building ID"
// @Param        room_id      path  string  true  "Room ID"
// @Param        month        path  string  true  "Month (YYYY-MM)"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/payments/{room_id}/{month} [get]
func (s *Server) GetSettlement(c *gin.Context) {
	month, err := meteringdomain.ParseMonthKey(c.Param("month"))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	ctx := c.Request.Context()
	buildingID, roomID := c.Param("building_id"), c.Param("room_id")
	if _, err := s.roomSvc.Get(ctx, buildingID, roomID); err != nil {
		AbortWithError(c, err)
		return
	}
	rec, err := s.paymentSvc.GetSettlement(ctx, buildingID, roomID, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rec == nil {
		AbortWithError(c, errSettlementNotFound)
		return
	}
	respondData(c, rec)
}
