package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/backend/internal/api/middleware"
	"github.com/fleetdesk/backend/internal/interceptor"
	"github.com/fleetdesk/backend/internal/services"
)

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var rej *interceptor.Rejection
	if errors.As(err, &rej) {
		body := gin.H{"error": rej.Decision.Err.Error()}
		if len(rej.Decision.Errors) > 0 {
			body["fields"] = rej.Decision.Errors
		}
		c.JSON(rejectionStatus(rej.Decision.Err), body)
		return
	}

	switch {
	case errors.Is(err, services.ErrUnknownResource), errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, interceptor.ErrMaliciousContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, interceptor.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, interceptor.ErrIdentifierBlocked):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
