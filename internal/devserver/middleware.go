package devserver

import (
	"log/slog"
	"net/http"
	"time"
)

// apiKeyAuth validates the X-API-Key header on mutating routes.
func apiKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Header.Get("X-API-Key") {
			case "":
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
			case apiKey:
				next.ServeHTTP(w, r)
			default:
				http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
			}
		})
	}
}

// requestLogging logs each request with status and duration.
func requestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
