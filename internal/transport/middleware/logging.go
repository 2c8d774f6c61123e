package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a JSON body ends up in a log line.
const maxLoggedBody = 4 << 10

const filtered = "[FILTERED]"

// sensitiveMarkers match field and header names by substring.
var sensitiveMarkers = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
	"cookie",
}

// healthChecks are logged at debug so they do not drown the claim traffic.
var healthChecks = map[string]bool{
	"/api/v1/health": true,
	"/api/v1/ping":   true,
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := RequestIDFromContext(r.Context())
			if reqID == "" {
				reqID = chiMiddleware.GetReqID(r.Context())
			}

			quiet := healthChecks[r.URL.Path]
			if !quiet {
				logRequest(logger, r, reqID)
			}

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			level := levelFor(rec.status())
			if quiet && level == slog.LevelInfo {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "response",
				"request_id", reqID,
				"method", r.Method,
				"route", routePattern(r),
				"status_code", rec.status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", rec.summary(),
			)
		})
	}
}

// responseRecorder keeps the head of JSON responses. Documents, invoices and
// exports are only counted.
type responseRecorder struct {
	http.ResponseWriter
	code int
	size int
	head bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.code = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.head.Len() < maxLoggedBody && isJSON(rw.Header().Get("Content-Type")) {
		rw.head.Write(b)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *responseRecorder) status() int {
	if rw.code == 0 {
		return http.StatusOK
	}
	return rw.code
}

func (rw *responseRecorder) summary() string {
	ct := rw.Header().Get("Content-Type")
	if isJSON(ct) {
		return filterBody(rw.head.Bytes())
	}
	if rw.size == 0 {
		return ""
	}
	return fmt.Sprintf("[%d bytes of %s]", rw.size, ct)
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// routePattern reports the matched chi pattern, e.g. /api/v1/claims/{id}/verify.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/json")
}

// logRequest never buffers multipart uploads, only their size is logged.
func logRequest(logger *slog.Logger, r *http.Request, reqID string) {
	body := ""
	if isJSON(r.Header.Get("Content-Type")) && r.Body != nil {
		raw, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
		rest := r.Body
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(raw), rest), rest}
		body = filterBody(raw)
	} else if r.ContentLength > 0 {
		body = fmt.Sprintf("[%d bytes of %s]", r.ContentLength, r.Header.Get("Content-Type"))
	}

	logger.Info("incoming request",
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterHeaders(r.Header),
		"body", body,
	)
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func filterHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterBody masks sensitive JSON fields. Bodies over the cap or that fail to
// parse are summarised instead of echoed.
func filterBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxLoggedBody {
		return fmt.Sprintf("[%d+ bytes of JSON]", maxLoggedBody)
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "[unparseable JSON]"
	}

	masked, err := json.Marshal(maskJSON(data))
	if err != nil {
		return "[unparseable JSON]"
	}
	return string(masked)
}

func maskJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskJSON(item)
		}
		return out
	default:
		return v
	}
}
