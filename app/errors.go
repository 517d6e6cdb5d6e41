package app

import (
	"net/http"

	"Gin_postgres_redis_library/db"

	"github.com/gin-gonic/gin"
)

// StatusOf 领域错误 → HTTP 状态码
func StatusOf(err error) int {
	switch db.KindOf(err) {
	case db.KindNotFound:
		return http.StatusNotFound
	case db.KindConflict, db.KindInvalidInput:
		return http.StatusBadRequest
	case db.KindForbidden:
		return http.StatusForbidden
	case db.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Fail 统一错误响应；存储故障只记日志，不把细节回给客户端
func Fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		Logger(c).Error("request failed", "error", err)
		c.AbortWithStatusJSON(status, H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, H{"error": err.Error()})
}
