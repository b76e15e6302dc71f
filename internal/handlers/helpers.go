package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/logger"
	"spendsmart/internal/middleware"
	"spendsmart/internal/uuid"
	"spendsmart/internal/validator"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString("userID")
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID reads a UUID path parameter.
//
//nolint:unparam // every route currently names it "id"
func parsePathID(c *gin.Context, param string) (string, error) {
	raw := c.Param(param)
	if !uuid.IsValid(raw) {
		return "", apperrors.InvalidField(param, "must be a valid id")
	}
	return raw, nil
}

// bindError turns a binding failure into an INVALID_INPUT error, with per-field
// detail when the payload failed validation.
func bindError(err error) error {
	if fields := validator.FieldErrors(err); fields != nil {
		return apperrors.WithFields(apperrors.ErrInvalidInput, fields)
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, "Malformed request body")
}

// parseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func parseDate(s string) (time.Time, error) {
	return parseDateIn(s, time.UTC)
}

// parseDateIn parses a YYYY-MM-DD calendar date as midnight in loc.
func parseDateIn(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(validator.DateLayout, s, loc)
}

// parseFlexibleTime accepts RFC3339 timestamps or YYYY-MM-DD dates. Bare dates
// are midnight in loc.
func parseFlexibleTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return parseDateIn(s, loc)
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, message and fields. Otherwise
// it logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, middleware.ErrorBody(appErr))
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, middleware.ErrorBody(apperrors.ErrInternalServer))
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}
