package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// LimitConcurrentRequests rejects requests with 429 while maxConcurrent are
// already in flight. Key presses can block on a UDP write for up to the
// socket timeout, which is also the suggested Retry-After.
func LimitConcurrentRequests(maxConcurrent int64, retryAfter time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(maxConcurrent)
	retry := strconv.Itoa(int(retryAfter.Round(time.Second) / time.Second))

	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			c.Header("Retry-After", retry)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "too many concurrent requests",
			})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
