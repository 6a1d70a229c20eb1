package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, 1*time.Second)) // 1 req/sec, no burst
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// the fixed window follows the wall clock; start right after a boundary
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second)) + 10*time.Millisecond)

	require.Equal(t, http.StatusOK, serve(r, "GET", "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "GET", "/r", ""))

	// next window is a fresh key
	time.Sleep(time.Second)
	m.FastForward(2 * time.Second)
	require.Equal(t, http.StatusOK, serve(r, "GET", "/r", ""))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.GET("/r", RedisRateLimitMiddleware(nil, 0.5, 1, time.Second), func(c *gin.Context) { c.Status(200) })

	require.Equal(t, http.StatusOK, serve(r, "GET", "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "GET", "/r", ""))
}

func TestRedisRateLimitMiddleware_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	r := gin.New()
	r.GET("/r", RedisRateLimitMiddleware(client, 1, 0, time.Second), func(c *gin.Context) { c.Status(200) })
	require.Equal(t, http.StatusInternalServerError, serve(r, "GET", "/r", ""))
}
