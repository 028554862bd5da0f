package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	businessdomain "github.com/sokobiz/sokobiz/internal/business/domain"
	creditdomain "github.com/sokobiz/sokobiz/internal/credit/domain"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	paymentdomain "github.com/sokobiz/sokobiz/internal/payment/domain"
	"github.com/sokobiz/sokobiz/pkg/db/pagination"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

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
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
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
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// isBadRequestError covers malformed input plus every webhook rejection the
// provider should retry after fixing its delivery.
func isBadRequestError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, paymentdomain.ErrVerificationFailed),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrUnknownDeposit),
		errors.Is(err, paymentdomain.ErrBusinessNotFound),
		errors.Is(err, paymentdomain.ErrPackUnavailable),
		errors.Is(err, paymentdomain.ErrAmountMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, businessdomain.ErrNotFound),
		errors.Is(err, packdomain.ErrPackNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, creditdomain.ErrInsufficientCredits),
		errors.Is(err, creditdomain.ErrNoConsumeToReverse),
		errors.Is(err, creditdomain.ErrNoUsageToReverse),
		errors.Is(err, creditdomain.ErrAlreadyReversed),
		errors.Is(err, creditdomain.ErrConflict):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger an error class and code
// without leaking internals into access logs.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case isBadRequestError(err):
		return "invalid_request", err.Error()
	case isNotFoundError(err):
		return "not_found", ""
	case isConflictError(err):
		return "conflict", err.Error()
	default:
		return "internal_error", ""
	}
}
