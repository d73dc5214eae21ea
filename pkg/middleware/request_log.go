package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kickoff-ai/core/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLog tags each request with an ID, stores the request logger in the
// context and logs the outcome. WebSocket upgrades are passed through untouched.
func RequestLog(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		reqLog := log.WithRequestID(requestID)
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(reqLog.ToContext(r.Context()))

		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		reqLog.Debug().
			Str("action", "http_request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status_code", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}
