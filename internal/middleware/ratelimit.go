// File: internal/middleware/ratelimit.go
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds per-client token bucket parameters.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupPeriod     time.Duration
	IdleTTL           time.Duration
}

// DefaultStreamConfig limits the expensive streaming endpoints.
func DefaultStreamConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             5,
		CleanupPeriod:     10 * time.Minute,
		IdleTTL:           30 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	config  *RateLimitConfig
	clients map[string]*clientLimiter
	mu      sync.Mutex
}

func NewIPRateLimiter(config *RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		config:  config,
		clients: make(map[string]*clientLimiter),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *IPRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for ip, c := range rl.clients {
			if time.Since(c.lastSeen) > rl.config.IdleTTL {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects requests exceeding the per-IP limit with 429.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.allow(ip) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
