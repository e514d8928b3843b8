package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the unified JSON envelope.
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	ErrorType string      `json:"error_type,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// PaginationResponse is the envelope for a page of items.
type PaginationResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Total   int64       `json:"total"`
	Page    int         `json:"page,omitempty"`
	PerPage int         `json:"per_page,omitempty"`
}

// SuccessResponse writes 200 with data.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "success",
		Data:    data,
	})
}

// CreatedResponse writes 201 with data.
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    201,
		Message: message,
		Data:    data,
	})
}

// SuccessWithMessage writes 200 with a custom message.
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse writes an error envelope.
func ErrorResponse(c *gin.Context, code int, errorType, message string) {
	c.JSON(code, Response{
		Code:      code,
		Message:   message,
		ErrorType: errorType,
	})
}

// BadRequest writes 400.
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "validation", message)
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, "unauthorized", message)
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, "forbidden", message)
}

// NotFound writes 404.
func NotFound(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, "not_found", message)
}

// InternalError writes 500.
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, "internal", message)
}

// PaginatedResponse writes 200 with a page of items.
func PaginatedResponse(c *gin.Context, data interface{}, total int64, page int, perPage int) {
	c.JSON(http.StatusOK, PaginationResponse{
		Code:    200,
		Message: "success",
		Data:    data,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}
