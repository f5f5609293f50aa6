package middleware

import (
	"time"

	"image-review/internal/metrics"
	"image-review/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 的请求/响应头。
const RequestIDHeader = "X-Request-ID"

// RequestLogger 是一个 Gin 中间件，为每个请求分配请求 ID，
// 记录请求日志并上报 HTTP 指标。m 可以为 nil。
// 请求体与响应体不写入日志，登录等接口会携带密码与 token。
func RequestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, statusCode, latency)

		log.Infow("HTTP Request Log",
			"requestID", requestID,
			"statusCode", statusCode,
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"responseSize", c.Writer.Size(),
		)
	}
}
