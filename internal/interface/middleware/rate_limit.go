package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-user-service/pkg/response"
)

// KeyFunc builds the bucket key for a request.
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true for requests that skip the limiter.
type AllowFunc func(*gin.Context) bool

// KeyByIP buckets by client address only.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ClientIP(c)
	}
}

// KeyByIPAndPath buckets by client address and route template, so
// /users/1 and /users/2 share a bucket.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ClientIP(c)
	}
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// Fixed window: the first hit sets the expiry. Returns {count, pttl}.
var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type window struct {
	rdb  *redis.Client
	size time.Duration
}

func (w window) hit(ctx context.Context, key string) (int, time.Duration, error) {
	res, err := hitScript.Run(ctx, w.rdb, []string{key}, w.size.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, redis.Nil
	}
	return int(res[0]), time.Duration(res[1]) * time.Millisecond, nil
}

// RateLimit allows max requests per key per window and answers 429 beyond
// that, with the X-RateLimit-* and Retry-After headers set (RFC 6585). A nil
// client or a non-positive budget disables it; Redis errors let the request
// through.
func RateLimit(rdb *redis.Client, max int, size time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || size <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	win := window{rdb: rdb, size: size}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		count, ttl, err := win.hit(c.Request.Context(), keyFn(c))
		if err != nil {
			c.Next()
			return
		}

		reset := 0
		if ttl > 0 {
			reset = int((ttl + time.Second - 1) / time.Second)
		}
		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > max {
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
