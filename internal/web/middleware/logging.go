// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/eurometrics/internal/logging"
)

// Logger returns middleware that logs one structured entry per request.
//
// The entry carries chi's request ID through logging.FromContext. The
// session cookie named sessionCookie, when the request has one, is logged
// as session_id so a visitor's requests can be followed; requests that
// create a session log it from the session store instead.
//
// Log fields: method, path, status, bytes, duration_ms, ip, session_id.
func Logger(sessionCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			ctx := r.Context()
			if c, err := r.Cookie(sessionCookie); err == nil {
				ctx = logging.ContextWithSession(ctx, c.Value)
			}

			level := logging.FromContext(ctx).Info
			if ww.status >= http.StatusInternalServerError {
				level = logging.FromContext(ctx).Warn
			}
			level("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"bytes", ww.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap provides access to the underlying ResponseWriter for
// http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
