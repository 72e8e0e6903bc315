package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int `env:"REQUESTS"`
	// Window is the time window for rate limiting
	Window time.Duration `env:"WINDOW"`
	// Burst allows for temporary bursts above the rate limit
	Burst int `env:"BURST"`
}

var (
	// RedeemLimit guards the public redemption endpoint against code
	// guessing: 10 attempts per minute per client.
	RedeemLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             10,
	}

	// IssuerLimit applies to authenticated invite management.
	IssuerLimit = RateLimitConfig{
		RequestsPerWindow: 120,
		Window:            time.Minute,
		Burst:             30,
	}
)

// idleEviction is how long a key's limiter survives without traffic.
const idleEviction = 10 * time.Minute

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, issuer subject)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SubjectKeyExtractor keys on the authenticated issuer, falling back to IP.
func SubjectKeyExtractor(r *http.Request) string {
	if sub := SubjectFromContext(r.Context()); sub != "" {
		return "sub:" + sub
	}
	return IPKeyExtractor(r)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter manages rate limiters for different keys
type rateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	lastScan time.Time
	now      func() time.Time
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	window := config.Window
	if window <= 0 {
		window = time.Minute
	}
	burst := config.Burst
	if burst <= 0 {
		burst = max(config.RequestsPerWindow, 1)
	}
	return &rateLimiter{
		entries:  make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(config.RequestsPerWindow) / window.Seconds()),
		burst:    burst,
		lastScan: time.Now(),
		now:      time.Now,
	}
}

// reserve takes a token for key. When none is available it returns the
// wait until the next one.
func (rl *rateLimiter) reserve(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictIdle(now)

	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}

	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// evictIdle drops limiters unused for idleEviction. Caller holds mu.
func (rl *rateLimiter) evictIdle(now time.Time) {
	if now.Sub(rl.lastScan) < idleEviction {
		return
	}
	rl.lastScan = now
	for key, e := range rl.entries {
		if now.Sub(e.lastSeen) >= idleEviction {
			delete(rl.entries, key)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// RateLimitMiddleware creates a rate limiting middleware with the given configuration.
// The keyExtractor determines how requests are grouped for rate limiting.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	rl := newRateLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			allowed, delay := rl.reserve(key)
			if !allowed {
				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP creates a rate limiter that limits by IP address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitBySubject limits by authenticated issuer, or IP when anonymous.
func RateLimitBySubject(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, SubjectKeyExtractor)
}
