// Package handlers implements the citekeep REST endpoints.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an application error onto its HTTP status. Unknown
// errors are masked as internal.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    string(appErrors.ErrCodeInternal),
			Message: appErrors.DefaultMessageForCode(appErrors.ErrCodeInternal),
		})
		return
	}

	body := ErrorResponse{Code: string(appErr.Code), Message: appErr.Message}
	status := appErrors.HTTPStatusForCode(appErr.Code)
	if appErrors.IsClientError(appErr.Code) {
		body.Detail = appErr.Detail
	}
	c.JSON(status, body)
}

// parseUUIDParam reads a path parameter as a UUID.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, appErrors.InvalidParam("invalid "+name+": must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.InvalidParam("invalid " + name + ": must be an integer")
	}
	return v, nil
}

// queryFloat reads an optional float query parameter.
func queryFloat(c *gin.Context, name string, fallback float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, appErrors.InvalidParam("invalid " + name + ": must be a number")
	}
	return v, nil
}

// queryBool interprets "1" and "true" as true, everything else as false.
func queryBool(c *gin.Context, name string) bool {
	v := c.Query(name)
	return v == "1" || v == "true"
}
