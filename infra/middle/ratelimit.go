package middle

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onwards-ai/xboard-payments/infra/response"
	"golang.org/x/time/rate"
)

const visitorTTL = 3 * time.Minute

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	perMin   int
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
// Non-positive values fall back to 100 per minute and a burst of 10.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 100
	}
	if burst <= 0 {
		burst = 10
	}

	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		perMin:   perMinute,
		done:     make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether clientIP may make a request now
func (rl *RateLimiter) Allow(clientIP string) bool {
	return rl.allowAt(clientIP, time.Now())
}

func (rl *RateLimiter) allowAt(clientIP string, now time.Time) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[clientIP]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[clientIP] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// cleanup removes idle visitors
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, ip)
		}
	}
}

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMin))

			if !rl.Allow(GetClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SetTrustedProxies sets the reverse proxies, as IPs or CIDRs, whose
// X-Forwarded-For and X-Real-IP headers GetClientIP believes. With none set
// only RemoteAddr counts.
func SetTrustedProxies(entries []string) error {
	var nets []*net.IPNet
	for _, entry := range entries {
		if entry = strings.TrimSpace(entry); entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		nets = append(nets, n)
	}
	trustedProxies.Store(&nets)
	return nil
}

var trustedProxies atomic.Pointer[[]*net.IPNet]

func isTrustedProxy(ip string) bool {
	nets := trustedProxies.Load()
	if nets == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range *nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// GetClientIP extracts the client IP. Forwarding headers are only read when
// the direct peer is a trusted proxy; X-Forwarded-For is walked from the right
// and the first hop that is not itself a trusted proxy wins.
func GetClientIP(r *http.Request) string {
	remote := remoteIP(r.RemoteAddr)
	if !isTrustedProxy(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !isTrustedProxy(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}

func remoteIP(remoteAddr string) string {
	ip := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		ip = host
	}
	ip = strings.Trim(ip, "[]")
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}
