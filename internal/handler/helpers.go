package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// errorStatus maps a service error onto an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidMedication), errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError writes err as an ErrorResponse and logs it at a level
// matching its status
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	} else {
		logger.Warn(message, zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: stringPtr(err.Error()),
	})
}

// respondBadRequest rejects a request that could not be bound
func respondBadRequest(c *gin.Context, logger *zap.Logger, err error, message string) {
	logger.Warn("invalid request", zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: stringPtr(err.Error()),
	})
}

// dateQuery binds an optional YYYY-MM-DD query parameter
func dateQuery(c *gin.Context, name string) (timeutil.Date, bool, error) {
	var d *openapi_types.Date
	if err := runtime.BindQueryParameter("form", true, false, name, c.Request.URL.Query(), &d); err != nil {
		return timeutil.Date{}, false, fmt.Errorf("%w: %s must be formatted as %s", service.ErrInvalidArgument, name, openapi_types.DateFormat)
	}
	if d == nil {
		return timeutil.Date{}, false, nil
	}
	return timeutil.DateOf(d.Time), true, nil
}

// intQuery parses an optional integer query parameter
func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", service.ErrInvalidArgument, name)
	}
	return n, nil
}
