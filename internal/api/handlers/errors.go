package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"example.com/backstage/services/dairy/internal/notify"
	"example.com/backstage/services/dairy/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrInvalidRequest     = &Error{Message: "Invalid request", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrNotFound           = &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer     = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrUnauthorized       = &Error{Message: "Unauthorized", StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}
	ErrConflict           = &Error{Message: "Resource already exists", StatusCode: http.StatusConflict, Code: "CONFLICT"}
	ErrServiceUnavailable = &Error{Message: "Service unavailable", StatusCode: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE"}
)

// NewError creates a new API error with custom details
func NewError(message string, statusCode int, code string) *Error {
	return &Error{
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string) *Error {
	return NewError(message, http.StatusBadRequest, "VALIDATION_ERROR")
}

// FromError maps a service error onto an API error
func FromError(err error) *Error {
	var apiError *Error
	if errors.As(err, &apiError) {
		return apiError
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return NewValidationError(err.Error())
	case errors.Is(err, services.ErrCodeMissing),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrCodeMismatch),
		errors.Is(err, services.ErrCodeAttempts):
		return NewError(errors.Cause(err).Error(), http.StatusBadRequest, "INVALID_CODE")
	case errors.Is(err, services.ErrUnauthorized):
		return NewError("Invalid email or password", http.StatusUnauthorized, ErrUnauthorized.Code)
	case errors.Is(err, services.ErrNotFound):
		return NewError(err.Error(), http.StatusNotFound, ErrNotFound.Code)
	case errors.Is(err, services.ErrAlreadyClaimed):
		return NewError(err.Error(), http.StatusConflict, "ALREADY_CLAIMED")
	case errors.Is(err, services.ErrConflict):
		return NewError(err.Error(), http.StatusConflict, ErrConflict.Code)
	case errors.Is(err, notify.ErrNotConfigured):
		return NewError(err.Error(), http.StatusServiceUnavailable, "NOTIFIER_NOT_CONFIGURED")
	default:
		return ErrInternalServer
	}
}

// writeError writes an error response
func writeError(c *gin.Context, err error) {
	apiError := FromError(err)
	if apiError.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.AbortWithStatusJSON(apiError.StatusCode, ErrorResponse{
		Message: apiError.Message,
		Code:    apiError.Code,
	})
}

// ownerID reads the ownerId query parameter
func ownerID(c *gin.Context) (uint, error) {
	return parseID(c.Query("ownerId"), "ownerId")
}

// pathID reads a numeric path parameter
func pathID(c *gin.Context, name string) (uint, error) {
	return parseID(c.Param(name), name)
}

func parseID(raw, name string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewValidationError(name + " is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, NewValidationError(name + " must be a positive integer")
	}
	return uint(id), nil
}
