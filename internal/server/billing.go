package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	arrearsdomain "github.com/railzwaylabs/roomledger/internal/arrears/domain"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
)

// monthParam reads the month query parameter, defaulting to the current
// month in the billing timezone.
func (s *Server) monthParam(c *gin.Context, raw string) (meteringdomain.MonthKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := s.clock.Now(c.Request.Context()).In(s.cfg.Billing.Location())
		return meteringdomain.MonthOf(now), nil
	}
	month, err := meteringdomain.ParseMonthKey(raw)
	if err != nil {
		return meteringdomain.MonthKey{}, newValidationError("month", "invalid_month", "month must be YYYY-MM")
	}
	return month, nil
}

// @Summary      Monthly Statement
// @Description  Usage, cost and settlement of every room for one month
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path   string  true   "Building ID"
// @Param        month        query  string  false  "Month (YYYY-MM)"
// @Success      200  {object}  DataResponse
// @Router       /api/buildings/{building_id}/billing [get]
func (s *Server) GetStatement(c *gin.Context) {
	month, err := s.monthParam(c, c.Query("month"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	statement, err := s.billingSvc.Statement(c.Request.Context(), c.Param("building_id"), month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, statement)
}

// @Summary      Room Usage
// @Description  Usage, cost and daily consumption of one room
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path   string  true   "Building ID"
// @Param        room_id      path   string  true   "Room ID"
// @Param        month        query  string  false  "Month (YYYY-MM)"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/rooms/{room_id}/usage [get]
func (s *Server) GetRoomUsage(c *gin.Context) {
	month, err := s.monthParam(c, c.Query("month"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	usage, err := s.billingSvc.RoomUsage(c.Request.Context(), c.Param("building_id"), c.Param("room_id"), month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, usage)
}

// @Summary      Usage Series
// @Description  Day-over-day consumption across a date range, for one room or the whole building
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path   string  true   "Building ID"
// @Param        from         query  string  false  "First date (YYYY-MM-DD)"
// @Param        to           query  string  false  "Last date (YYYY-MM-DD)"
// @Param        room_id      query  string  false  "Room ID"
// @Success      200  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/usage-series [get]
func (s *Server) GetUsageSeries(c *gin.Context) {
	today := s.clock.Now(c.Request.Context()).In(s.cfg.Billing.Location())
	r, err := meteringdomain.ParseDateRange(c.Query("from"), c.Query("to"), today)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_date_range", err.Error()))
		return
	}
	series, err := s.billingSvc.UsageSeries(c.Request.Context(), c.Param("building_id"), strings.TrimSpace(c.Query("room_id")), r)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, series)
}

// @Summary      Arrears
// @Description  Past months with unpaid, non-zero charges
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path   string  true   "Building ID"
// @Param        months       query  int     false  "Trailing months"
// @Success      200  {object}  DataResponse
// @Router       /api/buildings/{building_id}/arrears [get]
func (s *Server) GetArrears(c *gin.Context) {
	var query struct {
		Months int `form:"months"`
	}
	if err := c.ShouldBindQuery(&query); err != nil || query.Months < 0 {
		AbortWithError(c, newValidationError("months", "invalid_months", "months must be a non-negative integer"))
		return
	}
	arrears, err := s.arrearsSvc.Scan(c.Request.Context(), c.Param("building_id"), query.Months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if arrears == nil {
		arrears = []arrearsdomain.MonthArrears{}
	}
	respondData(c, arrears)
}
