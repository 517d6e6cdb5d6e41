package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"
	ctxRequestID    = "requestID"
)

// RequestID 沿用客户端给的 id，没有就生成一个
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string { return c.GetString(ctxRequestID) }

// Logger 带上请求信息的 slog.Logger
func Logger(c *gin.Context) *slog.Logger {
	return slog.Default().With(
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", RequestIDFrom(c),
	)
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			Logger(c).Error("request", attrs...)
		case status >= http.StatusBadRequest:
			Logger(c).Warn("request", attrs...)
		default:
			Logger(c).Info("request", attrs...)
		}
	}
}

// Recovery panic 一律 500；开发模式把堆栈带回给客户端
func Recovery(exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := string(debug.Stack())
			Logger(c).Error("panic recovered", "error", fmt.Sprint(rec), "stack", stack)
			body := H{"error": "internal server error"}
			if exposeStack {
				body["detail"] = fmt.Sprint(rec)
				body["stack"] = stack
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
