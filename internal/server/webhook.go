package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleDepositWebhook receives provider deposit callbacks. Acknowledged
// deliveries (including duplicates and unrecognized statuses) answer a bare
// 200 "OK" so the provider stops retrying.
func (s *Server) HandleDepositWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.paymentSvc.ProcessDepositCallback(c.Request.Context(), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}
