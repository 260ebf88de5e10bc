package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ctxRequestID    = "request_id"
	headerRequestID = "X-Request-ID"

	slowRequestThreshold = 3 * time.Second
)

// Logger 请求日志中间件
// 1. 生成请求ID(客户端传了X-Request-ID则沿用)，写入响应头
// 2. 记录方法、路径、状态码、耗时、客户端IP
// 3. 慢请求记warn
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ctxRequestID, requestID)
		c.Header(headerRequestID, requestID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if latency > slowRequestThreshold {
			zap.L().Warn("slow request", fields...)
			return
		}
		zap.L().Info("request", fields...)
	}
}

// GetRequestID 从Context获取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
