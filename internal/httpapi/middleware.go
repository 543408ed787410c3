package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/internal/logging"
)

// middleware is the standard chain for every route except the health check:
// CORS, request ID, geo restriction, then per-IP rate limiting.
func (s *Server) middleware(next http.HandlerFunc) http.HandlerFunc {
	return s.corsMiddleware(s.requestIDMiddleware(s.geoMiddleware(s.rateLimitMiddleware(next))))
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// requestIDMiddleware tags the response and log lines with a request ID,
// honoring one supplied by a proxy
func (s *Server) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		s.logger.Debug("Request", logging.WithFields(map[string]interface{}{
			"id":     id,
			"method": r.Method,
			"path":   r.URL.Path,
		}))
		next(w, r)
	}
}

func (s *Server) geoMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.restrictor != nil && !s.restrictor.Allowed(clientIP(r)) {
			s.writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "service not available in your region",
			})
			return
		}
		next(w, r)
	}
}

// rateLimitMiddleware applies the per-IP request window; the dev IP is
// exempt
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip != s.cfg.Server.DevIP && !s.ipLimiter.Allow(ip) {
			s.writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "too many requests",
			})
			return
		}
		next(w, r)
	}
}
