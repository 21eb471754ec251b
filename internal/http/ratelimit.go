package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/selectshop/internal/repo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter shares a fixed window per key across instances.
type RedisLimiter struct {
	R      *repo.Redis
	Limit  int
	Window time.Duration
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.R.Allow(ctx, key, l.Limit, l.Window)
}

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter keeps a token bucket per key in this process. It is used
// when Redis is not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	keys    map[string]*keyLimiter
	every   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewMemoryLimiter allows limit requests per window and a burst of limit.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &MemoryLimiter{
		keys:    make(map[string]*keyLimiter),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idleTTL: 2 * window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.keys[key]
	if !ok {
		l.prune(now)
		kl = &keyLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.keys[key] = kl
	}
	kl.lastAccess = now
	return kl.limiter.AllowN(now, 1), nil
}

// prune drops idle keys; callers hold mu.
func (l *MemoryLimiter) prune(now time.Time) {
	for k, kl := range l.keys {
		if now.Sub(kl.lastAccess) > l.idleTTL {
			delete(l.keys, k)
		}
	}
}

func ClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}

// RateLimit throttles a route per client IP. A nil limiter disables it and
// limiter errors let the request through.
func RateLimit(l Limiter, route string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		ok, err := l.Allow(c.Request.Context(), route+":"+ClientIP(c))
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apiError{"too many requests", http.StatusTooManyRequests})
			return
		}
		c.Next()
	}
}
