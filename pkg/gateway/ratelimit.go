package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
)

// LoginLimiter throttles login attempts per client IP with a Redis-backed
// fixed window, shared across gateway instances. Redis failures fail open so
// a cache outage never locks admins out.
type LoginLimiter struct {
	redis   *redis.Client
	limit   int
	window  time.Duration
	prefix  string
	logger  *observability.Logger
	metrics *observability.Metrics
}

// DefaultLoginLimit is the number of attempts allowed per window
const DefaultLoginLimit = 10

// DefaultLoginWindow is the fixed rate-limit window
const DefaultLoginWindow = time.Minute

// NewLoginLimiter creates a limiter. A nil redis client disables limiting.
func NewLoginLimiter(redisClient *redis.Client, limit int, window time.Duration, logger *observability.Logger, metrics *observability.Metrics) *LoginLimiter {
	if limit <= 0 {
		limit = DefaultLoginLimit
	}
	if window <= 0 {
		window = DefaultLoginWindow
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &LoginLimiter{
		redis:   redisClient,
		limit:   limit,
		window:  window,
		prefix:  "ratelimit:login",
		logger:  logger.WithField("component", "login_limiter"),
		metrics: metrics,
	}
}

// Allow reports whether another login attempt from this client is permitted
func (l *LoginLimiter) Allow(ctx context.Context, clientIP string) bool {
	if l.redis == nil || clientIP == "" {
		return true
	}

	key := fmt.Sprintf("%s:%s", l.prefix, clientIP)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.WithError(err).Warn("login rate limit check failed, allowing request")
		return true
	}

	allowed := incr.Val() <= int64(l.limit)
	if !allowed && l.metrics != nil {
		l.metrics.LoginThrottledTotal.Inc()
	}
	return allowed
}

// Reset clears the window for a client
func (l *LoginLimiter) Reset(ctx context.Context, clientIP string) error {
	if l.redis == nil {
		return nil
	}
	return l.redis.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, clientIP)).Err()
}
