package controllers

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_library/app"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON 绑定失败时直接写 400；字段错误按 {字段: 规则} 返回
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, app.H{"error": "invalid request", "fields": fields})
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, app.H{"error": "invalid request body"})
	return false
}
