package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sokobiz/sokobiz/internal/observability/metrics"
)

// WebhookGuard throttles webhook deliveries per remote address. With no
// bucket configured it passes everything through; on redis errors it fails
// open so a cache outage never drops provider callbacks.
func WebhookGuard(bucket *TokenBucket, rate float64, burst int, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bucket == nil {
			c.Next()
			return
		}

		key := "ratelimit:webhook:" + c.ClientIP()
		result, err := bucket.Allow(c.Request.Context(), key, rate, burst)
		if err != nil {
			log.Warn("webhook rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		endpoint := c.FullPath()
		if !result.Allowed {
			m.RecordRateLimitDenied(endpoint, "rate_exceeded")
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		m.RecordRateLimitAllowed(endpoint)
		c.Next()
	}
}
