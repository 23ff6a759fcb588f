package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"resumeform/internal/errors"

	"golang.org/x/time/rate"
)

// RateLimiter throttles bridge clients. Opening a websocket and every
// submit sent over it spend from the same per-client bucket, so a client
// cannot get around the limit by holding one session open.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
	idle    time.Duration

	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMin per client with the given burst.
// Clients idle for longer than idleWindow (10m when zero) are forgotten.
func NewRateLimiter(requestsPerMin int, idleWindow time.Duration, burst int, logger *errors.Logger) *RateLimiter {
	if logger == nil {
		logger = errors.Discard()
	}
	if idleWindow <= 0 {
		idleWindow = 10 * time.Minute
	}

	l := &RateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   max(burst, 1),
		idle:    idleWindow,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go l.sweep()
	return l
}

// Allow spends one token for key. When the bucket is empty it reports how
// long the client should wait.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	res := b.limiter.Reserve()
	if !res.OK() {
		return false, 0
	}
	if wait := res.Delay(); wait > 0 {
		res.Cancel()
		return false, wait
	}
	return true, 0
}

// GetStats returns limiter statistics for /stats
func (l *RateLimiter) GetStats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]any{
		"tracked_clients": len(l.clients),
		"rate_per_minute": float64(l.limit) * 60.0,
		"burst_capacity":  l.burst,
		"idle_eviction":   l.idle.String(),
	}
}

func (l *RateLimiter) sweep() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			l.evictIdle(now)
		case <-l.done:
			return
		}
	}
}

// evictIdle forgets clients not seen within the idle window before now
func (l *RateLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.clients, key)
		}
	}
	l.logger.Debug("Evicted idle rate limit buckets", "tracked_clients", len(l.clients))
}

// Close stops the sweeper. Safe to call more than once.
func (l *RateLimiter) Close() {
	l.stopOnce.Do(func() { close(l.done) })
}

// rateLimitKey is the bucket a request spends from, "" when it is not limited
func (s *Server) rateLimitKey(r *http.Request) (key, keyType string) {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return "", ""
	}
	return getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
}

// rateLimitMiddleware rejects websocket upgrades over the client's budget
func (s *Server) rateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, keyType := s.rateLimitKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if ok, wait := s.RateLimiter.Allow(key); !ok {
				s.Logger.Info("Rate limit exceeded",
					"key_type", keyType,
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				s.metrics.RecordRateLimitHit(r.Context(), keyType)
				if wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) (string, string) {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey, "api_key"
		}
	}
	if byIP {
		return "ip:" + getClientIP(r), "ip"
	}
	return "", ""
}

// getClientIP prefers proxy headers over the socket address
func getClientIP(r *http.Request) string {
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
