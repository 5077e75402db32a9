package http

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// KeyExtractor picks the bucket a request is counted against.
type KeyExtractor func(*http.Request) string

// ClientIP resolves the address of the client behind a request.
// X-Forwarded-For and X-Real-IP are only believed when the direct peer is
// one of the trusted proxies; otherwise the peer address is the client.
type ClientIP struct {
	trusted []netip.Prefix
}

// ParseTrustedProxies parses proxy entries given as CIDR prefixes or
// single addresses.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// NewClientIP creates a resolver trusting forwarding headers from the
// given proxies. No proxies means headers are never trusted.
func NewClientIP(trustedProxies []netip.Prefix) *ClientIP {
	return &ClientIP{trusted: trustedProxies}
}

func (c *ClientIP) isTrusted(addr netip.Addr) bool {
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseHost(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// Key returns the client IP of r. It has the KeyExtractor signature.
func (c *ClientIP) Key(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	peer, ok := parseHost(host)
	if !ok {
		return host
	}
	if !c.isTrusted(peer) {
		return peer.String()
	}

	// Walk X-Forwarded-For from the nearest hop back; the first address
	// not belonging to a trusted proxy is the client.
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseHost(hops[i])
			if !ok {
				break
			}
			client = addr
			if !c.isTrusted(addr) {
				break
			}
		}
		return client.String()
	}

	if addr, ok := parseHost(r.Header.Get("X-Real-IP")); ok {
		return addr.String()
	}
	return peer.String()
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	config  RateLimitConfig
	keyFn   KeyExtractor
	onLimit func(r *http.Request, key string)

	limiters sync.Map // map[string]*rate.Limiter
	limit    rate.Limit

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewRateLimiter creates a limiter. onLimit, if set, is called for every
// rejected request.
func NewRateLimiter(config RateLimitConfig, keyFn KeyExtractor, onLimit func(*http.Request, string)) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerWindow
	}
	return &RateLimiter{
		config:      config,
		keyFn:       keyFn,
		onLimit:     onLimit,
		limit:       rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.config.Burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets every few minutes. A bucket that has
// refilled completely carries no state worth keeping.
func (rl *RateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.config.Burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow reports whether one more request for key fits, and if not, how
// long until it would.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	limiter := rl.getLimiter(key)
	if limiter.Allow() {
		return true, 0
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFn(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		ok, delay := rl.Allow(key)
		if !ok {
			retryAfter := max(int(delay.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerWindow))
			if rl.onLimit != nil {
				rl.onLimit(r, key)
			}
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
