package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/verifyengine/core/infrastructure/httputil"
	"github.com/verifyengine/core/infrastructure/logging"
)

// RecoveryMiddleware recovers from panics in a handler and turns them into a
// 500 JSON response instead of taking down the listener.
type RecoveryMiddleware struct {
	logger *logging.Logger
}

func NewRecoveryMiddleware(logger *logging.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				m.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
					"panic":       fmt.Sprintf("%v", err),
					"stack":       string(stack),
					"path":        r.URL.Path,
					"method":      r.Method,
					"remote_addr": r.RemoteAddr,
				}).Error("panic recovered in http handler")

				httputil.WriteErrorResponse(w, r, http.StatusInternalServerError, "SVC_5001", "internal server error", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
