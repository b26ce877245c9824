package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// KeyByIP charges requests to the client IP.
func KeyByIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

// KeyByAccount charges authenticated requests to the account and falls back
// to the client IP before Auth has run.
func KeyByAccount(c *gin.Context) string {
	if id := GetAccountID(c); id > 0 {
		return "acct:" + strconv.FormatInt(id, 10)
	}
	return KeyByIP(c)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimit provides token-bucket rate limiting per key.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = KeyByIP
	}
	buckets := &sync.Map{}

	// Drop buckets idle for 10 minutes, checked every 5.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
			buckets.Range(func(k, v interface{}) bool {
				if v.(*bucket).lastSeen.Load() < cutoff {
					buckets.Delete(k)
				}
				return true
			})
		}
	}()

	get := func(k string) *rate.Limiter {
		v, ok := buckets.Load(k)
		if !ok {
			v, _ = buckets.LoadOrStore(k, &bucket{limiter: rate.NewLimiter(r, b)})
		}
		bk := v.(*bucket)
		bk.lastSeen.Store(time.Now().UnixNano())
		return bk.limiter
	}

	return func(c *gin.Context) {
		if !get(key(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
