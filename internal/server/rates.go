package server

import (
	"github.com/gin-gonic/gin"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
)

type updateRatesRequest struct {
	Rates map[string]int64 `json:"rates"`
}

// @Summary      Get Rates
// @Description  Unit prices of a building and when each last changed
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string  true  "Building ID"
// @Success      200  {object}  DataResponse
// @Router       /api/buildings/{building_id}/rates [get]
func (s *Server) GetRates(c *gin.Context) {
	table, err := s.priceSvc.GetRates(c.Request.Context(), c.Param("building_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, table)
}

// @Summary      Update Rates
// @Description  Change unit prices; only changed kinds get a new timestamp
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        building_id  path  string              true  "Building ID"
// @Param        request      body  updateRatesRequest  true  "Update Rates Request"
// @Success      200  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /api/buildings/{building_id}/rates [put]
func (s *Server) UpdateRates(c *gin.Context) {
	var req updateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rates := make(map[meteringdomain.Kind]int64, len(req.Rates))
	for name, rate := range req.Rates {
		kind, err := meteringdomain.ParseKind(name)
		if err != nil {
			AbortWithError(c, newValidationError("rates."+name, "invalid_kind", err.Error()))
			return
		}
		rates[kind] = rate
	}

	result, err := s.priceSvc.UpdateRates(c.Request.Context(), c.Param("building_id"), pricedomain.UpdateRequest{Rates: rates})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}
