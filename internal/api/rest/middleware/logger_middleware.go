package middleware

import (
	"time"

	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader заголовок идентификатора запроса
const RequestIDHeader = "X-Request-ID"

// RequestID проставляет идентификатор запроса, если клиент его не передал
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware создает middleware для логирования запросов
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		requestID := c.GetString(RequestIDHeader)

		// Токен постбэка может прийти в query, поэтому пишем путь без него
		path := c.Request.URL.Path

		switch {
		case statusCode >= 500:
			log.Error("[%s] %s %d %s %s id=%s", c.Request.Method, path, statusCode, latency, c.ClientIP(), requestID)
		case statusCode >= 400:
			log.Warn("[%s] %s %d %s %s id=%s", c.Request.Method, path, statusCode, latency, c.ClientIP(), requestID)
		default:
			log.Info("[%s] %s %d %s %s id=%s", c.Request.Method, path, statusCode, latency, c.ClientIP(), requestID)
		}
	}
}
