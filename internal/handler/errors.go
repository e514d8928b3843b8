package handler

import (
	"errors"
	"net/http"

	"contentgen/internal/service"
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

var statusByType = map[string]int{
	service.ErrorTypeValidation:  http.StatusBadRequest,
	service.ErrorTypeBudget:      http.StatusPaymentRequired,
	service.ErrorTypeForbidden:   http.StatusForbidden,
	service.ErrorTypeNotFound:    http.StatusNotFound,
	service.ErrorTypeConflict:    http.StatusConflict,
	service.ErrorTypeGeneration:  http.StatusBadGateway,
	service.ErrorTypePublish:     http.StatusBadGateway,
	service.ErrorTypeUnavailable: http.StatusServiceUnavailable,
}

// respondError maps a service error onto the response envelope. Internal
// errors are logged by the request logger and hidden from the caller.
func respondError(c *gin.Context, err error) {
	errorType := service.ErrorType(err)
	status, ok := statusByType[errorType]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		message = verr.Message
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "internal server error"
	}
	utils.ErrorResponse(c, status, errorType, message)
}

// bindError reports a request that failed binding or validation.
func bindError(c *gin.Context, err error) {
	utils.BadRequest(c, utils.FormatValidationError(err).Error())
}
