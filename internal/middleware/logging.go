package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"keywatch/internal/logger"
)

// RequestLogger logs every request at debug level and failed ones as warnings.
func RequestLogger(logger *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= 400 {
				logger.Warning("%s %s -> %d (%s)", r.Method, r.URL.Path, status, time.Since(start))
				return
			}
			logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}
