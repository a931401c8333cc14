package middleware

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects requests with 429 once the shared bucket is
// empty. A nil limiter disables limiting.
func RateLimitMiddleware(l *rate.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			retry := 1
			if lim := float64(l.Limit()); lim > 0 {
				retry = max(1, int(math.Ceil(1/lim)))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeErr(w, http.StatusTooManyRequests, "too_many_requests")
		})
	}
}

// NewLimiter returns nil when rps <= 0.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}
