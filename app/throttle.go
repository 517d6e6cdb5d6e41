package app

import (
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_library/session"

	"github.com/gin-gonic/gin"
)

// LoginThrottle 每个 IP 在窗口内最多 limit 次登录尝试，超出 429
func LoginThrottle(appSess *session.AppSessionStore, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		n, err := appSess.HitLogin(c.Request.Context(), c.ClientIP(), window)
		if err != nil {
			// Redis 出问题时不拦登录
			Logger(c).Warn("login throttle unavailable", "error", err)
			c.Next()
			return
		}
		if n > limit {
			c.Header("Retry-After", strconv.Itoa(int(window/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"error": "too many login attempts, try again later"})
			return
		}
		c.Next()
	}
}
