package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type logContextKey string

const requestAttrsKey logContextKey = "log_attrs"

// requestAttrs carries per-request log attributes discovered by downstream
// middleware. Logger runs before Authenticate in the chain and context
// values only flow downstream, so later discoveries (the authenticated
// token id) are handed back through this request-local holder.
type requestAttrs struct {
	tokenID string
}

// setLoggedTokenID records the authenticated token id for the request log
// line. No-op when the request is not wrapped by Logger.
func setLoggedTokenID(ctx context.Context, id string) {
	if a, ok := ctx.Value(requestAttrsKey).(*requestAttrs); ok {
		a.tokenID = id
	}
}

// Logger returns an HTTP middleware that logs every request with structured
// fields: method, path, status, duration, request ID, remote address, and —
// when the request authenticated — the bound token id. Credentials and
// secrets are never logged; token ids are public identifiers.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqAttrs := &requestAttrs{}
			r = r.WithContext(context.WithValue(r.Context(), requestAttrsKey, reqAttrs))

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.status >= 500 {
				level = slog.LevelError
			} else if ww.status >= 400 {
				level = slog.LevelWarn
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"bytes", ww.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if reqAttrs.tokenID != "" {
				attrs = append(attrs, "token_id", reqAttrs.tokenID)
			}

			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// bytes written for logging purposes.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter, required for http.Flusher
// and other interface assertions through middleware chains.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
