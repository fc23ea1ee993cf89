package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/roomledger/internal/authorization"
	meteringdomain "github.com/railzwaylabs/roomledger/internal/metering/domain"
	paymentdomain "github.com/railzwaylabs/roomledger/internal/payment/domain"
	pricedomain "github.com/railzwaylabs/roomledger/internal/price/domain"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
)

var errSettlementNotFound = errors.New("settlement_not_found")

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type validationError struct {
	field   string
	code    string
	message string
}

func (e *validationError) Error() string { return e.message }

func newValidationError(field, code, message string) error {
	return &validationError{field: field, code: code, message: message}
}

func invalidRequestError() error {
	return newValidationError("", "invalid_request", "request body is not valid")
}

// AbortWithError maps domain errors to HTTP statuses and aborts the request.
func AbortWithError(c *gin.Context, err error) {
	status, body := classify(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func classify(err error) (int, ErrorBody) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorBody{Code: verr.code, Message: verr.message, Field: verr.field}
	case errors.Is(err, paymentdomain.ErrInvalidArgument),
		errors.Is(err, meteringdomain.ErrInvalidMonthKey),
		errors.Is(err, meteringdomain.ErrInvalidKind),
		errors.Is(err, meteringdomain.ErrInvalidDateRange),
		errors.Is(err, roomdomain.ErrInvalidCalibration),
		errors.Is(err, pricedomain.ErrInvalidRate),
		errors.Is(err, pricedomain.ErrInvalidBuilding),
		errors.Is(err, roomdomain.ErrInvalidBuilding),
		errors.Is(err, roomdomain.ErrInvalidRoom),
		errors.Is(err, storedomain.ErrInvalidPath):
		return http.StatusBadRequest, ErrorBody{Code: "invalid_argument", Message: err.Error()}
	case errors.Is(err, roomdomain.ErrRoomNotFound):
		return http.StatusNotFound, ErrorBody{Code: roomdomain.ErrRoomNotFound.Error(), Message: "room not found"}
	case errors.Is(err, errSettlementNotFound):
		return http.StatusNotFound, ErrorBody{Code: errSettlementNotFound.Error(), Message: "no settlement recorded for this month"}
	case errors.Is(err, paymentdomain.ErrAlreadyPaid):
		return http.StatusConflict, ErrorBody{Code: paymentdomain.ErrAlreadyPaid.Error(), Message: "settlement already recorded for this month"}
	case errors.Is(err, authorization.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorBody{Code: authorization.ErrUnauthenticated.Error(), Message: "authentication required"}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Code: authorization.ErrForbidden.Error(), Message: "not allowed"}
	case errors.Is(err, storedomain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorBody{Code: storedomain.ErrUnavailable.Error(), Message: "storage is unavailable"}
	default:
		return http.StatusInternalServerError, ErrorBody{Code: "internal_error", Message: "internal error"}
	}
}
