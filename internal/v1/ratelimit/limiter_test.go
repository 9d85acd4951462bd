package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, apiRate, wsRate string) (*gin.Engine, *RateLimiter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rl, err := New(apiRate, wsRate, nil)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/api/ping", rl.APIMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/ws", func(c *gin.Context) {
		if !rl.CheckWebSocket(c) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, rl
}

func TestNew_InvalidRate(t *testing.T) {
	_, err := New("not-a-rate", "10-M", nil)
	assert.Error(t, err)

	_, err = New("10-M", "nope", nil)
	assert.Error(t, err)
}

func TestAPIMiddleware_AllowsUnderLimit(t *testing.T) {
	router, _ := newTestRouter(t, "5-M", "5-M")

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestAPIMiddleware_BlocksOverLimit(t *testing.T) {
	router, _ := newTestRouter(t, "2-M", "100-M")

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestCheckWebSocket_BlocksOverLimit(t *testing.T) {
	router, _ := newTestRouter(t, "100-M", "2-M")

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/ws", nil))
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestLimits_AreIndependent(t *testing.T) {
	router, _ := newTestRouter(t, "2-M", "2-M")

	// Exhaust the API limit; WebSocket attempts still pass.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
