package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Kinabler/DBS401/internal/app/observability/metrics"
)

// MetricsMiddleware records request counters and latency, plus per-concern
// counters derived from the route and response status. Must run after
// metrics.InitAppMetrics.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m := metrics.Get()
		m.HTTPRequestsTotal.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("path", path),
				attribute.String("status", strconv.Itoa(status)),
			))
		m.HTTPRequestDuration.Record(context.Background(), duration,
			metric.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("path", path),
			))

		if path == "/login" && c.Request.Method == "POST" {
			outcome := "failure"
			if status < 400 {
				outcome = "success"
			}
			m.LoginAttemptsTotal.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("outcome", outcome)))
		}

		if status == 403 {
			m.AdminDenialsTotal.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("path", path)))
		}

		if status == 400 && (strings.HasPrefix(path, "/memes") || strings.HasPrefix(path, "/profile/avatar")) {
			m.UploadRejectionsTotal.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("path", path)))
		}
	}
}
