// Package middleware provides the grocerylist HTTP middleware.
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
)

// bucket tracks a fixed-window request count for one IP.
type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter limits each client IP to max requests per window.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter builds a limiter. Start Evict in a goroutine on
// long-running servers so idle buckets are dropped.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window, now: time.Now, buckets: map[string]*bucket{}}
}

// Allow counts one request from ip.
func (l *RateLimiter) Allow(ip string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, found := l.buckets[ip]
	if !found || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[ip] = b
	}
	b.count++
	if b.count > l.max {
		return false, b.resetAt.Sub(now)
	}
	return true, 0
}

// Evict drops expired buckets every window until ctx is done.
func (l *RateLimiter) Evict(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for ip, b := range l.buckets {
				if now.After(b.resetAt) {
					delete(l.buckets, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware answers 429 once a client is over the limit.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		ok, retry := l.Allow(ip)
		if !ok {
			logger.WithCtx(r.Context()).Warn("rate limited", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var (
	proxyMu sync.RWMutex
	proxies []netip.Prefix
)

// SetTrustedProxies takes a comma-separated list of IPs or CIDRs whose
// X-Forwarded-For headers are believed. Empty trusts nobody.
func SetTrustedProxies(list string) error {
	var parsed []netip.Prefix
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return fmt.Errorf("middleware: trusted proxy %q: %w", raw, err)
			}
			parsed = append(parsed, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return fmt.Errorf("middleware: trusted proxy %q: %w", raw, err)
		}
		parsed = append(parsed, p.Masked())
	}

	proxyMu.Lock()
	proxies = parsed
	proxyMu.Unlock()
	return nil
}

func trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	proxyMu.RLock()
	defer proxyMu.RUnlock()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is the remote host. When that host is a trusted proxy, the
// X-Forwarded-For chain is walked from the right and the first untrusted
// hop wins.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !trusted(host) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !trusted(hop) {
			return hop
		}
		host = hop
	}
	return host
}
