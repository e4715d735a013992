package ratelim

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key. The gateway keys it by API resource
// ("products", "orders", ...) to keep a runaway view from hammering one endpoint; the local
// storefront keys it by remote address.
type RateLimiter struct {
	buckets map[string]*rate.Limiter
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
}

// NewRateLimiter allows perSecond requests per key with the given burst. A non-positive
// perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
		idle:    10 * time.Minute,
	}
}

// Get or create the bucket for key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.buckets[key]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets[key] = limiter

	// Forget idle keys
	time.AfterFunc(rl.idle, func() {
		rl.mu.Lock()
		delete(rl.buckets, key)
		rl.mu.Unlock()
	})

	return limiter
}

// Wait blocks until key may send another request or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Allow reports whether key may act now, consuming a token if so.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Limit rejects requests beyond the per-address budget.
func (rl *RateLimiter) Limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !rl.Allow(r.RemoteAddr) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r, ps)
	}
}
