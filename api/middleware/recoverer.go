package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/adoniasgoesw/filazero/api/responses"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR envelope and logs it with the stack,
// the route and the calling terminal. http.ErrAbortHandler is re-raised so net/http can abort
// the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if recErr, ok := rec.(error); ok && errors.Is(recErr, http.ErrAbortHandler) {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic":       fmt.Sprint(rec),
						"route":       matchedRoute(r),
						"terminal_id": TerminalIDFromContext(ctx),
						"request_id":  RequestIDFromContext(ctx),
						"stack":       string(debug.Stack()),
					})
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
