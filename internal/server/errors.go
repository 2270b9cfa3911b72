package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printpixel/core/internal/backup"
	"github.com/printpixel/core/internal/binding"
	eventdomain "github.com/printpixel/core/internal/event/domain"
	settingsdomain "github.com/printpixel/core/internal/settings/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrNotFound           = errors.New("not_found")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isInvalidInputError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_input",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict), errors.Is(err, eventdomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, eventdomain.ErrStoreUnavailable),
		errors.Is(err, settingsdomain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "store_unavailable",
			Message: "store unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isInvalidInputError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, eventdomain.ErrInvalidSchema),
		errors.Is(err, eventdomain.ErrEmptyPayload),
		errors.Is(err, eventdomain.ErrMissingID),
		errors.Is(err, eventdomain.ErrInvalidStatus),
		errors.Is(err, settingsdomain.ErrInvalidKey),
		errors.Is(err, binding.ErrNoSchema),
		errors.Is(err, binding.ErrEmptyPayload),
		errors.Is(err, backup.ErrInvalidImport):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, eventdomain.ErrNotFound),
		errors.Is(err, settingsdomain.ErrNotFound),
		errors.Is(err, backup.ErrUnknownBackup),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
