// Package middleware provides HTTP middleware for the warehouse engine.
package middleware

import (
	"net/http"

	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxIdempotencyKeyLength bounds the key copied onto spans
const MaxIdempotencyKeyLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing starts the otelgin server span. The span name follows otelgin:
// "METHOD route" (e.g. "POST /api/v1/orders/:id/allocations"). Place
// SpanEnricher after it.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher runs inside the otelgin span. It adds request attributes and
// marks 4xx/5xx responses as errors.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if key := c.GetHeader(logger.IdempotencyKeyHeader); key != "" {
				if len(key) > MaxIdempotencyKeyLength {
					key = key[:MaxIdempotencyKeyLength]
				}
				span.SetAttributes(attribute.String("idempotency_key", key))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, "Internal Server Error")
		} else {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
