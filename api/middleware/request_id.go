package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/adoniasgoesw/filazero/pkg/logger"
)

const (
	requestIDHeader  = "X-Request-Id"
	terminalIDHeader = "X-Terminal-Id"
	maxRequestIDLen  = 128
	maxTerminalIDLen = 64
)

// RequestID echoes a caller supplied X-Request-Id, or a fresh uuid when the header is missing
// or not a plain token, and tags the request log with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if !plainToken(reqID, maxRequestIDLen) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := withRequestID(r.Context(), reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TerminalID tags the request with the terminal named in X-Terminal-Id so logs and idempotency
// records are scoped per terminal. Ids that are not plain tokens are ignored.
func TerminalID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminalID := strings.TrimSpace(r.Header.Get(terminalIDHeader))
			if !plainToken(terminalID, maxTerminalIDLen) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithTerminalID(r.Context(), terminalID)
			if logg != nil {
				ctx = logg.WithTerminalID(ctx, terminalID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// plainToken accepts letters, digits, '-', '_', '.' and ':' up to limit bytes.
func plainToken(s string, limit int) bool {
	if s == "" || len(s) > limit {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == ':':
		default:
			return false
		}
	}
	return true
}
