package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey holds the request-scoped *zap.Logger.
	LoggerKey contextKey = "logger"
	// RequestIDKey holds the X-Request-ID of the inbound call.
	RequestIDKey contextKey = "request_id"
	// IdempotencyKeyKey holds the Idempotency-Key of a fulfill or receive call.
	IdempotencyKeyKey contextKey = "idempotency_key"
)

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores requestID in ctx and attaches a logger carrying it.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithIdempotencyKey stores key in ctx and attaches a logger carrying it.
func WithIdempotencyKey(ctx context.Context, logger *zap.Logger, key string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, IdempotencyKeyKey, key)
	enriched := logger.With(zap.String("idempotency_key", key))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request ID in ctx, or "".
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// GetIdempotencyKey returns the idempotency key in ctx, or "".
func GetIdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(IdempotencyKeyKey).(string)
	return key
}

// WithTraceContext adds trace_id and span_id from the active span.
// The logger is returned unchanged when ctx carries no valid span.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// ContextLogger injects trace and request correlation fields on every entry.
//
//	logger.L(ctx).Warn("receipt rejected", zap.Int64("quantity", q))
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger over the logger attached to ctx.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger over an explicit base logger.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(cl.ctx, l)

	// Loggers attached by WithRequestID already carry the field.
	if cl.ctx.Value(LoggerKey) != cl.logger {
		if requestID := GetRequestID(cl.ctx); requestID != "" {
			l = l.With(zap.String("request_id", requestID))
		}
		if key := GetIdempotencyKey(cl.ctx); key != "" {
			l = l.With(zap.String("idempotency_key", key))
		}
	}
	return l
}

// With creates a child ContextLogger with additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.enriched().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.enriched().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.enriched().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.enriched().Error(msg, fields...) }

// Zap returns the enriched *zap.Logger for APIs that need one.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}
