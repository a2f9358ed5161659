package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/coursesub/pkg/logctx"
)

// ContextKeyErrorCode holds the envelope error_code of a failed request.
// Responses are always HTTP 200, so the access log cannot tell a rejected
// lifecycle call apart from a successful one by status alone.
const ContextKeyErrorCode = "error_code"

// AccessLogMiddleware logs one line per request using the request-scoped
// logger attached by RequestLoggerMiddleware. Failed calls are logged at warn.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		l, ok := c.Get(string(logctx.LoggerKey))
		if !ok {
			return
		}
		log, ok := l.(*zap.SugaredLogger)
		if !ok || log == nil {
			return
		}
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if code := c.GetString(ContextKeyErrorCode); code != "" {
			log.Warnw("http_access", append(fields, "error_code", code)...)
			return
		}
		log.Infow("http_access", fields...)
	}
}
