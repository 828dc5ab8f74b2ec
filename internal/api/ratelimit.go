package api

import (
	"net/http"

	"github.com/luminareader/lumina-server/internal/http/response"
	"github.com/luminareader/lumina-server/internal/ratelimit"
)

// rateLimit builds middleware that keys a limiter by client address. The
// daemon listens on loopback, so the key is effectively one bucket per UI
// shell; the limiter still protects against a runaway frontend loop.
func (s *Server) rateLimit(limiter *ratelimit.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				response.Error(w, http.StatusTooManyRequests, "too many requests, slow down", s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
