package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/time2pay/pkg/logger"
)

const TraceHeader = "X-Trace-ID"

type ctxKey string

const requestIDKey ctxKey = "request_id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" || len(traceID) > 64 {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, traceID)
		ctx = logger.WithRequestID(ctx, traceID)

		// propagate back to response
		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
