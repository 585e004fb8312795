package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a client's bucket survives without requests.
const idleTTL = 10 * time.Minute

// sweepEvery bounds how often idle buckets are collected.
const sweepEvery = 512

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides per-client rate limiting using a token bucket per key.
type RateLimiter struct {
	limiters   map[string]*clientLimiter
	mu         sync.Mutex
	rateLimit  rate.Limit
	burstLimit int
	hits       uint64
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per client
// with bursts of up to burst. A non-positive rate disables limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
	}
}

// Allow reports whether a request from client may proceed. A nil limiter
// allows everything.
func (r *RateLimiter) Allow(client string, now time.Time) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.limiters[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(r.rateLimit, r.burstLimit)}
		r.limiters[client] = entry
	}
	entry.lastSeen = now

	r.hits++
	if r.hits%sweepEvery == 0 {
		cutoff := now.Add(-idleTTL)
		for k, v := range r.limiters {
			if v.lastSeen.Before(cutoff) {
				delete(r.limiters, k)
			}
		}
	}
	return entry.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients.
func (r *RateLimiter) Clients() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
