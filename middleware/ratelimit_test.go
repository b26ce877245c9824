package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newRateLimitRouter(r rate.Limit, b int, key KeyFunc) *gin.Engine {
	eng := gin.New()
	eng.Use(RateLimit(r, b, key))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func hit(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsFirst(t *testing.T) {
	r := newRateLimitRouter(100, 5, nil)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
}

func TestRateLimit_Burst(t *testing.T) {
	// Burst of 3, then reject
	r := newRateLimitRouter(0.001, 3, KeyByIP) // near-zero refill so we exhaust quickly
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "10.0.1.1"), "request %d should be allowed", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.1.1"))
}

func TestRateLimit_PerIP(t *testing.T) {
	// Two IPs with burst=1 each → each gets one allowed request
	r := newRateLimitRouter(0.001, 1, KeyByIP)

	for _, ip := range []string{"10.1.1.1", "10.1.1.2"} {
		assert.Equal(t, http.StatusOK, hit(r, ip), "first request from %s should be OK", ip)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.1.1.1"))
}

func TestRateLimit_PerAccount(t *testing.T) {
	eng := gin.New()
	eng.Use(func(c *gin.Context) {
		// Stand-in for Auth: the account id travels in a header.
		if c.GetHeader("X-Account") == "1" {
			c.Set(AccountIDKey, int64(1))
		} else if c.GetHeader("X-Account") == "2" {
			c.Set(AccountIDKey, int64(2))
		}
		c.Next()
	})
	eng.Use(RateLimit(0.001, 1, KeyByAccount))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(account string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.2.2.2")
		req.Header.Set("X-Account", account)
		w := httptest.NewRecorder()
		eng.ServeHTTP(w, req)
		return w.Code
	}

	// Same IP, different accounts: separate buckets.
	assert.Equal(t, http.StatusOK, do("1"))
	assert.Equal(t, http.StatusOK, do("2"))
	assert.Equal(t, http.StatusTooManyRequests, do("1"))
}
