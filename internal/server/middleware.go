package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// requestID はリクエストごとに識別子を割り当てる
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog はリクエストの結果を構造化ログに記録する
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.With(zap.String("component", "http"))

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("リクエスト処理に失敗しました", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("リクエストが拒否されました", fields...)
		default:
			logger.Debug("リクエストを処理しました", fields...)
		}
	}
}
