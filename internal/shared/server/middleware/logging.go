package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"release-analyzer/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		analysisID, _ := c.Get("analysisId")
		analysisStatus := ""
		if raw, ok := c.Get("analysisStatus"); ok {
			if s, ok := raw.(string); ok {
				analysisStatus = s
			}
		}

		telemetry.Info("request.complete", map[string]any{
			"request_id":      RequestIDFromContext(c),
			"method":          c.Request.Method,
			"path":            c.Request.URL.Path,
			"status":          c.Writer.Status(),
			"analysis_status": analysisStatus,
			"duration_ms":     float64(latency.Microseconds()) / 1000.0,
			"session_id":      SessionIDFromContext(c),
			"analysis_id":     analysisID,
			"client_ip":       c.ClientIP(),
			"user_agent":      c.Request.UserAgent(),
		})
	}
}
