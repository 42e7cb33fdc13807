package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/R3E-Network/todo_service/internal/httputil"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// Recovery turns handler panics into a generic 500 response.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.FromContext(r.Context()).
						WithField("panic", rec).
						WithField("stack", string(debug.Stack())).
						Error("handler panicked")
					httputil.InternalError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
