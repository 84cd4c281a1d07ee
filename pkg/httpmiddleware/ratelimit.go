package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window. Zero disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client; defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// Decision is the outcome of one Limiter.Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	start time.Time
	prev  float64
	curr  float64
}

// Limiter is a sliding window counter: the previous fixed window counts in
// proportion to its overlap with the trailing Window.
type Limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*window
}

// NewLimiter returns a Limiter for cfg.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &Limiter{cfg: cfg, clients: map[string]*window{}}
}

// Allow records a request from key at now if it fits the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.cfg.Window)
	w, ok := l.clients[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.clients[key] = w
	case start.Sub(w.start) >= 2*l.cfg.Window:
		*w = window{start: start}
	case start.After(w.start):
		*w = window{start: start, prev: w.curr}
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(l.cfg.Window)
	used := w.prev*overlap + w.curr
	d := Decision{ResetAt: w.start.Add(l.cfg.Window)}
	if used+1 > float64(l.cfg.Max) {
		return d
	}
	w.curr++
	d.Allowed = true
	d.Remaining = max(0, l.cfg.Max-int(math.Ceil(used+1)))
	return d
}

// Evict drops clients idle for two windows.
func (l *Limiter) Evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.clients, key)
		}
	}
}

// RateLimit limits requests per client and answers 429 with the API error
// body when exceeded. Stale clients are evicted until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := NewLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Evict(now)
			}
		}
	}()
	return l.Middleware
}

// Middleware enforces the limit on next.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		d := l.Allow(l.cfg.KeyFunc(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		if !d.Allowed {
			retry := max(0, int(math.Ceil(d.ResetAt.Sub(now).Seconds())))
			h.Set("Retry-After", strconv.Itoa(retry))
			writeProblem(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// host, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
