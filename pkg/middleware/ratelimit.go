package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/agora-board/agora/pkg/httputil"
)

// RateLimitConfig defines a fixed window limit.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultLoginRateLimit is the limit applied to credential-bearing
// endpoints: password login and OAuth callbacks.
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 10, Window: time.Minute}
}

// Limiter decides whether a request keyed by client identity is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a process-local fixed-window limiter, used when no Redis
// is configured.
type MemoryLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	windows map[string]*countWindow
}

type countWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		windows: make(map[string]*countWindow),
	}
}

// Allow counts the request against the key's current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &countWindow{count: 1, resetAt: now.Add(l.config.Window)}
		return true, nil
	}
	w.count++
	return w.count <= l.config.Requests, nil
}

// RedisLimiter shares the window across instances via Redis INCR/EXPIRE.
// On Redis errors it fails open: login availability beats strictness.
type RedisLimiter struct {
	client *redis.Client
	config RateLimitConfig
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, config RateLimitConfig, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:login"
	}
	return &RedisLimiter{client: client, config: config, prefix: prefix}
}

// Allow counts the request in Redis.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis rate limit: %w", err)
	}

	return incr.Val() <= int64(l.config.Requests), nil
}

// LoginRateLimit throttles brute-forceable endpoints by client IP.
type LoginRateLimit struct {
	limiter Limiter
	logger  *logrus.Logger
	limited *prometheus.CounterVec
}

// NewLoginRateLimit creates the middleware. limited may be nil when metrics
// are disabled.
func NewLoginRateLimit(limiter Limiter, logger *logrus.Logger, limited *prometheus.CounterVec) *LoginRateLimit {
	return &LoginRateLimit{limiter: limiter, logger: logger, limited: limited}
}

// Handler wraps next with the limit check.
func (m *LoginRateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limitedPath(r) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := m.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			m.logger.WithError(err).Warn("rate limiter unavailable, failing open")
		}
		if !allowed {
			if m.limited != nil {
				m.limited.WithLabelValues(r.URL.Path).Inc()
			}
			httputil.WriteErrorMessage(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitedPath(r *http.Request) bool {
	path := r.URL.Path
	if r.Method == http.MethodPost && path == "/users/login" {
		return true
	}
	return strings.HasPrefix(path, "/auth/") && strings.HasSuffix(path, "/callback")
}

// clientIP extracts the originating client address, honoring the first
// X-Forwarded-For hop when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
