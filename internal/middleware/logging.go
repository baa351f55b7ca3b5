package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"loved-api/internal/logger"
)

// maxLoggedBody caps request and response bodies logged at debug level
const maxLoggedBody = 4096

// responseWriter wraps http.ResponseWriter to capture status code and response body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.body != nil && rw.body.Len() < maxLoggedBody {
		rw.body.Write(b[:min(len(b), maxLoggedBody-rw.body.Len())])
	}
	return rw.ResponseWriter.Write(b)
}

// Logging logs every request with the request scoped logger.
//
// Log levels:
// - INFO: method, path, status and duration of successful requests
// - DEBUG: additionally request and response bodies and query parameters
// - WARN: failed requests (status 4xx)
// - ERROR: server errors (status 5xx)
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.FromContext(r.Context())
		debug := log.Enabled(r.Context(), slog.LevelDebug)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		if debug {
			var requestBody []byte
			if r.Body != nil {
				requestBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(requestBody))
			}
			wrapped.body = &bytes.Buffer{}

			attrs := []any{
				"remote_ip", getIP(r),
				"user_agent", r.UserAgent(),
				"method", r.Method,
				"path", r.URL.Path,
			}
			if len(r.URL.Query()) > 0 {
				attrs = append(attrs, "query_params", r.URL.Query())
			}
			if len(requestBody) > 0 {
				attrs = append(attrs, "request_body", string(requestBody[:min(len(requestBody), maxLoggedBody)]))
			}
			log.Debug("Incoming request", attrs...)
		}

		next.ServeHTTP(wrapped, r)

		var level slog.Level
		var message string
		switch {
		case wrapped.statusCode >= 500:
			level = slog.LevelError
			message = "Request failed with error"
		case wrapped.statusCode >= 400:
			level = slog.LevelWarn
			message = "Request failed"
		default:
			level = slog.LevelInfo
			message = "Request completed"
		}

		attrs := []any{
			"remote_ip", getIP(r),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if debug && wrapped.body.Len() > 0 {
			attrs = append(attrs, "response_body", wrapped.body.String())
		}

		log.Log(r.Context(), level, message, attrs...)
	})
}
