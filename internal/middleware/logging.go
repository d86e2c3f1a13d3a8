package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// responseWriter captures HTTP status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// LoggingMiddleware logs one line per HTTP request and attaches a request
// scoped logger to the context, retrievable with zerolog.Ctx.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			reqLogger := logger.With().Str("request_id", RequestIDFromContext(r.Context())).Logger()
			ctx := reqLogger.WithContext(r.Context())

			next.ServeHTTP(rw, r.WithContext(ctx))

			event := reqLogger.Info()
			if rw.statusCode >= http.StatusInternalServerError {
				event = reqLogger.Error()
			} else if rw.statusCode >= http.StatusBadRequest {
				event = reqLogger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Int("bytes", rw.bytes).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("http request")
		})
	}
}
