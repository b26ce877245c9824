package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newWhitelistRouter(t *testing.T, entries []string) *gin.Engine {
	t.Helper()
	allow, err := IPWhitelist(entries)
	require.NoError(t, err)
	r := gin.New()
	r.Use(allow)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func ping(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Real-IP", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestIPWhitelist_Empty_AllowsAll(t *testing.T) {
	r := newWhitelistRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPWhitelist_AllowedIP(t *testing.T) {
	r := newWhitelistRouter(t, []string{"192.168.1.1"})
	assert.Equal(t, http.StatusOK, ping(r, "192.168.1.1"))
}

func TestIPWhitelist_BlockedIP(t *testing.T) {
	r := newWhitelistRouter(t, []string{"10.0.0.1"})
	assert.Equal(t, http.StatusForbidden, ping(r, "1.2.3.4"))
}

func TestIPWhitelist_CIDR(t *testing.T) {
	r := newWhitelistRouter(t, []string{"10.0.0.0/8", "::1"})
	assert.Equal(t, http.StatusOK, ping(r, "10.20.30.40"))
	assert.Equal(t, http.StatusOK, ping(r, "::1"))
	assert.Equal(t, http.StatusForbidden, ping(r, "11.0.0.1"))
}

func TestIPWhitelist_InvalidEntry(t *testing.T) {
	_, err := IPWhitelist([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = IPWhitelist([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
