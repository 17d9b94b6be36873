package mid

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit returns middleware that rejects requests over the given
// sustained rate with 429. Burst allows short spikes through.
func RateLimit(rps float64, burst int) Middleware {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
