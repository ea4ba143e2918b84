package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"retail-backend/internal/metrics"
	"retail-backend/pkg/utils"
)

// PanicRecovery turns a handler panic into the standard INTERNAL error
// envelope, tagged with the request id so the stack can be found in the log.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				metrics.PanicsRecoveredTotal.Inc()
				log.Printf("[Recovery] %s %s %s panicked: %v\n%s",
					GetRequestID(r.Context()), r.Method, r.URL.Path, err, debug.Stack())
				utils.Error(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
