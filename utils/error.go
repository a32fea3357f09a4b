package utils

import (
	"errors"
	"net/http"

	"servana/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// DomainError maps a domain error onto an HTTP response. Unrecognized errors
// come back as 503: they are storage or infrastructure failures the caller
// may retry, not rule violations.
func DomainError(c *gin.Context, err error) {
	var (
		slotConflict models.SlotConflictError
		badMove      models.InvalidTransitionError
		badState     models.InvalidStateError
		policy       models.PolicyViolationError
		balance      models.InsufficientBalanceError
		notFound     models.NotFoundError
		conflict     models.ConflictError
	)
	switch {
	case errors.As(err, &slotConflict):
		JSONError(c, http.StatusConflict, "slot unavailable", err.Error())
	case errors.As(err, &badMove):
		JSONError(c, http.StatusConflict, "invalid transition", err.Error())
	case errors.As(err, &badState):
		JSONError(c, http.StatusConflict, "invalid state", err.Error())
	case errors.As(err, &policy):
		JSONError(c, http.StatusForbidden, "policy violation", err.Error())
	case errors.As(err, &balance):
		JSONError(c, http.StatusUnprocessableEntity, "insufficient balance", err.Error())
	case errors.As(err, &notFound):
		JSONError(c, http.StatusNotFound, "not found", err.Error())
	case errors.As(err, &conflict):
		JSONError(c, http.StatusConflict, "conflict", err.Error())
	default:
		GetLogger().Error("internal error", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Service temporarily unavailable",
			Details: "Please retry shortly.",
		})
	}
}
