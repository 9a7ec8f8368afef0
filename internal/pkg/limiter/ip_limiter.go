/*
Package limiter provides connection-level rate limiting keyed by client IP address.

It uses the token bucket algorithm (rate.Limiter) to bound how often one
address may hit the HTTP surface or open a websocket, and runs a cleanup
goroutine that drops limiters whose buckets have refilled. This is a coarser
guard than the per-identity operation gate; the two are applied in sequence.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/resp"

	"golang.org/x/time/rate"
)

// IPRateLimiter implements a concurrency-safe token-bucket limiter per client IP.
type IPRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu *sync.RWMutex

	// limits maps a client IP address to its *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the refill rate, events allowed per second.
	r rate.Limit

	// b is the burst size of each bucket.
	b int
}

// NewIPRateLimiter creates an IPRateLimiter with rate r and burst b, and starts
// a background goroutine that periodically removes idle limiters.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		mu:     &sync.RWMutex{},
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter returns the limiter for the given IP, creating one on first sight.
// Double-checked locking keeps the common read path on the RLock.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// cleanUpVisitors periodically removes limiters whose buckets are full again.
// A full bucket means the address has been quiet for at least one refill cycle.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		i.mu.Lock()
		count := 0
		for ip, limiter := range i.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(i.limits, ip)
				count++
			}
		}
		i.mu.Unlock()
		logx.Info("Rate limiter cleanup finished.", "removed", count, "remaining", len(i.limits))
	}
}

// ClientIP extracts the bare IP from an http.Request remote address.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}

// Middleware returns an HTTP middleware enforcing the limiter on every request.
// Requests over the limit receive a 429 response.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		limiter := i.GetLimiter(ip)

		if !limiter.Allow() {
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}
