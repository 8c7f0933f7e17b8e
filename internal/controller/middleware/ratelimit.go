package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware applies a per-user token-bucket limit in front of
// the API. The credit ledger is the real admission gate; this only keeps
// a single user from hammering the endpoints.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limiters := sync.Map{} // userID -> *cachedLimiter

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				unauthorized(w, "Unauthorized")
				return
			}

			limiter := getOrCreateLimiter(&limiters, userID, rps, burst, 5*time.Minute)
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func getOrCreateLimiter(limiters *sync.Map, userID string, rps float64, burst int, ttl time.Duration) *rate.Limiter {
	now := time.Now()

	if v, ok := limiters.Load(userID); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			cached.expiresAt = now.Add(ttl)
			return cached.limiter
		}
		limiters.Delete(userID)
	}

	cached := &cachedLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		expiresAt: now.Add(ttl),
	}
	actual, _ := limiters.LoadOrStore(userID, cached)
	return actual.(*cachedLimiter).limiter
}
