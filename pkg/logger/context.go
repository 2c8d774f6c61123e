package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With derives a request-scoped logger carrying the given attributes.
func With(ctx context.Context, fields ...any) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// From falls back to the process logger when ctx carries none.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return With(ctx, "request_id", requestID)
}
