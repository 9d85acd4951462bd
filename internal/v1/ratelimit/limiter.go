// Package ratelimit implements rate limiting backed by Redis or local memory.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimiter holds the limiter instances: one for the REST API, one for
// WebSocket connection attempts. Both are keyed by client IP since
// connections are anonymous until the joinRoom handshake.
type RateLimiter struct {
	api   *limiter.Limiter
	wsIP  *limiter.Limiter
	store limiter.Store
}

// New creates a RateLimiter from ulule formatted rates (e.g. "300-M").
// A nil redisClient falls back to an in-process memory store.
func New(apiRate, wsIPRate string, redisClient *redis.Client) (*RateLimiter, error) {
	apiParsed, err := limiter.NewRateFromFormatted(apiRate)
	if err != nil {
		return nil, fmt.Errorf("invalid API rate: %w", err)
	}
	wsParsed, err := limiter.NewRateFromFormatted(wsIPRate)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
	} else {
		store = memory.NewStore()
	}

	return &RateLimiter{
		api:   limiter.New(store, apiParsed),
		wsIP:  limiter.New(store, wsParsed),
		store: store,
	}, nil
}

// APIMiddleware enforces the per-IP API rate limit on REST routes.
func (rl *RateLimiter) APIMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lctx, err := rl.api.Get(ctx, c.ClientIP())
		if err != nil {
			// Fail open: a broken limiter store should not take the API down.
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), "ip").Inc()
			c.Header("Retry-After", strconv.FormatInt(lctx.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// CheckWebSocket checks if a WebSocket connection attempt should be allowed.
// Returns true if allowed, false if the limit was exceeded (response written).
func (rl *RateLimiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()

	// Keyed separately from the API limiter, which shares the same store.
	lctx, err := rl.wsIP.Get(ctx, "ws:"+c.ClientIP())
	if err != nil {
		logging.Error(ctx, "WS rate limiter store failed", zap.Error(err))
		return true // fail open
	}

	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		c.Header("X-RateLimit-Retry-After", strconv.FormatInt(lctx.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connections from this IP"})
		return false
	}

	return true
}
