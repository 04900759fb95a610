package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gazereader-go/internal/models"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response. err may be nil.
func Error(c *gin.Context, code int, message string, err error) {
	resp := Response{
		Code:    code,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		if kind, ok := models.KindOf(err); ok {
			resp.Kind = kind.String()
		}
		c.Error(err)
	}
	c.JSON(code, resp)
}

// Fail sends an error response with the status code implied by err
func Fail(c *gin.Context, message string, err error) {
	Error(c, StatusFor(err), message, err)
}

// StatusFor maps runtime errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrCalibrationRunning), errors.Is(err, models.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	if kind, ok := models.KindOf(err); ok {
		switch kind {
		case models.KindConfiguration:
			return http.StatusConflict
		case models.KindSurfaceLoad:
			return http.StatusUnprocessableEntity
		case models.KindTransientService, models.KindCalibrationStep:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string, err error) {
	Error(c, http.StatusInternalServerError, message, err)
}
