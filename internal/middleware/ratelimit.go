package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/cache"
)

// Limiter decides whether another hit for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (cache.Decision, error)
	Limit() int
}

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys on the client address.
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByAccountOrIP keys on the authenticated account, falling back to the
// client address.
func ByAccountOrIP(c *gin.Context) string {
	if account := CurrentAccount(c); account != nil {
		return "account:" + strconv.FormatInt(account.ID, 10)
	}
	return ByClientIP(c)
}

// RateLimit rejects requests over the limiter's budget with 429. When the
// limiter itself fails the request is let through.
func RateLimit(limiter Limiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), key(c))
		if err != nil {
			if log := GetLogger(c); log != nil {
				log.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"error": err.Error(),
				})
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		if !decision.Allowed {
			seconds := int(decision.RetryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(seconds))
			abortJSON(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later",
				map[string]interface{}{"retry_after": seconds})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}
