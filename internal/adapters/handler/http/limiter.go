package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// AddressLimiter keeps one token bucket per normalized client address.
type AddressLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewAddressLimiter(perSecond float64, burst int) *AddressLimiter {
	if burst < 1 {
		burst = 1
	}
	return &AddressLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *AddressLimiter) Allow(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[address]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[address] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep forgets addresses not seen for idle.
func (l *AddressLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for address, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, address)
			removed++
		}
	}
	return removed
}

// Run sweeps idle addresses every interval until ctx is done.
func (l *AddressLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(interval)
		}
	}
}

// Middleware rejects requests over the per-address budget with 429.
func (l *AddressLimiter) Middleware(resolver AddressResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			address := domain.NormalizeAddress(resolver.Resolve(r))
			if !l.Allow(address) {
				w.Header().Set("Retry-After", "1")
				writeErrorCode(w, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
