package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	loggerCtxKey    struct{}
	requestIDCtxKey struct{}
)

// Inject stores l in ctx
func Inject(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, l)
}

// Extract returns the logger stored in ctx, else fallback, else a no-op logger
func Extract(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*zap.Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// ForRequest tags l with requestID and stores both in ctx
func ForRequest(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDCtxKey{}, requestID)
		l = l.With(zap.String("request_id", requestID))
	}
	return Inject(ctx, l), l
}

// RequestID returns the request ID stored by ForRequest
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// WithSpan adds trace_id and span_id of the active span, if any
func WithSpan(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
