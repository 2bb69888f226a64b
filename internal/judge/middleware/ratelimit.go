package middleware

import (
	"fmt"
	"net/http"
	"time"

	"elevate/internal/judge/service"
	pkgerrors "elevate/pkg/errors"
	"elevate/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RateLimitPolicy caps submissions per client IP over two windows.
type RateLimitPolicy struct {
	PerMinute int `yaml:"perMinute"`
	PerHour   int `yaml:"perHour"`
}

const (
	perMinuteMessage = "Too many submissions, please try again in a minute."
	perHourMessage   = "Too many submissions this hour, please slow down."
)

// RateLimitMiddleware enforces the per-minute and per-hour submission
// caps on every route it is attached to.
func RateLimitMiddleware(rateService *service.RateLimitService, policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rateService == nil {
			c.Next()
			return
		}
		clientIP := c.ClientIP()

		if policy.PerMinute > 0 {
			key := fmt.Sprintf("judge:rate:minute:%s", clientIP)
			if err := rateService.Allow(c.Request.Context(), key, policy.PerMinute, time.Minute); err != nil {
				abortRateLimited(c, err, perMinuteMessage)
				return
			}
		}

		if policy.PerHour > 0 {
			key := fmt.Sprintf("judge:rate:hour:%s", clientIP)
			if err := rateService.Allow(c.Request.Context(), key, policy.PerHour, time.Hour); err != nil {
				abortRateLimited(c, err, perHourMessage)
				return
			}
		}

		c.Next()
	}
}

func abortRateLimited(c *gin.Context, err error, message string) {
	if pkgerrors.GetCode(err) == pkgerrors.TooManyRequests {
		response.Fail(c, http.StatusTooManyRequests, message)
		c.Abort()
		return
	}
	response.AbortWithError(c, err)
}
