package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"
)

// RateLimiter implements a token bucket per client IP
type RateLimiter struct {
	mu              sync.Mutex
	requestsPerMin  int
	clients         map[string]*clientBucket
	cleanupInterval time.Duration
	lastCleanup     time.Time
	trustedProxies  []netip.Prefix
	logger          *slog.Logger
	now             func() time.Time
}

// clientBucket tracks tokens for a single client (IP)
type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	TrustedProxies    []netip.Prefix
	Logger            *slog.Logger
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RateLimiter{
		requestsPerMin:  config.RequestsPerMinute,
		clients:         make(map[string]*clientBucket),
		cleanupInterval: config.CleanupInterval,
		trustedProxies:  config.TrustedProxies,
		logger:          config.Logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Middleware returns an HTTP middleware function
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r, rl.trustedProxies)
			allowed, remaining, resetTime := rl.Allow(clientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				rl.logger.Warn("rate limit exceeded", "ip", clientIP, "path", r.URL.Path)
				retry := int(resetTime.Sub(rl.now()).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow checks if a request from the given client IP is allowed
// Returns: (allowed bool, remaining tokens, reset time)
func (rl *RateLimiter) Allow(clientIP string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) >= rl.cleanupInterval {
		rl.cleanup(now)
		rl.lastCleanup = now
	}

	bucket, exists := rl.clients[clientIP]
	if !exists {
		bucket = &clientBucket{tokens: rl.requestsPerMin, lastRefill: now}
		rl.clients[clientIP] = bucket
	}

	// Full refill happens every minute, partial refill in between
	elapsed := now.Sub(bucket.lastRefill)
	if elapsed >= time.Minute {
		bucket.tokens = rl.requestsPerMin
		bucket.lastRefill = now
	} else if add := int(float64(rl.requestsPerMin) * elapsed.Seconds() / 60.0); add > 0 {
		bucket.tokens = min(bucket.tokens+add, rl.requestsPerMin)
		bucket.lastRefill = now
	}

	reset := bucket.lastRefill.Add(time.Minute)
	if bucket.tokens > 0 {
		bucket.tokens--
		return true, bucket.tokens, reset
	}
	return false, 0, reset
}

// cleanup removes client buckets that haven't been used recently
func (rl *RateLimiter) cleanup(now time.Time) {
	for ip, bucket := range rl.clients {
		if now.Sub(bucket.lastRefill) > 2*time.Minute {
			delete(rl.clients, ip)
		}
	}
}
