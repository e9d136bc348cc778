package server

import (
	"container/list"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SecurityHeadersMiddleware adds security headers to all responses. Demo
// previews render inside same-origin iframes, so framing is limited to self
// rather than denied.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' 'unsafe-inline' 'unsafe-eval'; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data: https:; "+
					"frame-src 'self' blob:; "+
					"connect-src 'self'; "+
					"frame-ancestors 'self'")
			next.ServeHTTP(w, r)
		})
	}
}

const (
	defaultMaxTrackedIPs = 10000
	limiterIdleTimeout   = 10 * time.Minute
	limiterSweepInterval = 5 * time.Minute
)

// clientLimiter is one client's token bucket.
type clientLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps a token bucket per client IP. When maxIPs buckets are
// tracked, the least recently used one is dropped.
type rateLimiter struct {
	rps    rate.Limit
	burst  int
	maxIPs int
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*list.Element
	lru     *list.List
}

func newRateLimiter(rps float64, burst, maxIPs int, logger *slog.Logger) *rateLimiter {
	if maxIPs <= 0 {
		maxIPs = defaultMaxTrackedIPs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &rateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		maxIPs:  maxIPs,
		logger:  logger,
		clients: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// allow reports whether ip may make a request now.
func (l *rateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if elem, ok := l.clients[ip]; ok {
		l.lru.MoveToFront(elem)
		c := elem.Value.(*clientLimiter)
		c.lastSeen = now
		return c.limiter.Allow()
	}

	if l.lru.Len() >= l.maxIPs {
		if back := l.lru.Back(); back != nil {
			l.lru.Remove(back)
			delete(l.clients, back.Value.(*clientLimiter).ip)
			l.logger.Debug("[RateLimit] evicted least recent client", "tracked", l.maxIPs)
		}
	}
	c := &clientLimiter{ip: ip, limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now}
	l.clients[ip] = l.lru.PushFront(c)
	return c.limiter.Allow()
}

// sweep drops buckets idle for longer than limiterIdleTimeout.
func (l *rateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for e := l.lru.Back(); e != nil; {
		prev := e.Prev()
		if c := e.Value.(*clientLimiter); now.Sub(c.lastSeen) > limiterIdleTimeout {
			l.lru.Remove(e)
			delete(l.clients, c.ip)
		}
		e = prev
	}
}

func (l *rateLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lru.Len()
}

// RateLimitMiddleware limits requests per client IP with a token bucket of
// rps requests per second and the given burst. At most maxIPs clients are
// tracked.
//
// A sweeper goroutine starts immediately and runs until ctx is cancelled;
// the returned channel is closed once it has exited.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	mw, _, done := rateLimitMiddleware(ctx, rps, burst, maxIPs, nil)
	return mw, done
}

func rateLimitMiddleware(ctx context.Context, rps float64, burst, maxIPs int, logger *slog.Logger) (func(http.Handler) http.Handler, *rateLimiter, <-chan struct{}) {
	l := newRateLimiter(rps, burst, maxIPs, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				l.sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return mw, l, done
}

// clientIP returns the request's client address. Forwarding headers are only
// honored when the peer is a loopback or private address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer != nil && (peer.IsLoopback() || peer.IsPrivate()) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	if peer != nil {
		return peer.String()
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
