package webhook

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/monitoring"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// AccessLog logs method, path, status and latency of every request.
func AccessLog(log logger.Logger) mux.MiddlewareFunc {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Debugw("http request", map[string]any{
				"remote":   r.RemoteAddr,
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			})
		})
	}
}

// Recovery turns a handler panic into a 500 and reports it.
func Recovery(log logger.Logger) mux.MiddlewareFunc {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
					monitoring.CapturePanic(v, map[string]string{"path": r.URL.Path})
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
