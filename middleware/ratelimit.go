package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/thedemonsid/quiz-app/internal/config"
	"github.com/thedemonsid/quiz-app/internal/telemetry"
	"github.com/thedemonsid/quiz-app/utils"
)

const maxLocalVisitors = 10000

// RateLimiter limits requests per IP + endpoint. Counts live in Redis when it
// is configured and reachable; otherwise each instance keeps its own token buckets.
type RateLimiter struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
	limit   int
	window  time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter from the rate limit settings. rdb may be nil.
func NewRateLimiter(rdb *redis.Client, cfg *config.Config, metrics *telemetry.Metrics, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	window := time.Duration(cfg.RateLimitWindow) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	limit := cfg.RateLimitReqs
	if limit <= 0 {
		limit = 60
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-ratelimit",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &RateLimiter{
		rdb:      rdb,
		breaker:  breaker,
		limit:    limit,
		window:   window,
		logger:   logger,
		visitors: make(map[string]*visitor),
	}
}

// Middleware returns the gin handler. Health checks are never limited.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/health" || c.FullPath() == "/ready" {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()
		allowed, remaining := rl.Allow(c.Request.Context(), key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			utils.RespondWithError(c, http.StatusTooManyRequests,
				"rate_limit_exceeded",
				"Too many requests. Please try again later.")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

// Allow reports whether the request identified by key may proceed and how
// many requests remain in the current window.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int) {
	if rl.rdb != nil {
		count, err := rl.incrRemote(ctx, key)
		if err == nil {
			remaining := rl.limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			return count <= int64(rl.limit), remaining
		}
		// Fail over to local buckets while Redis is unavailable
		if err != gobreaker.ErrOpenState && err != gobreaker.ErrTooManyRequests {
			rl.logger.Debug("Redis rate limit unavailable", slog.String("error", err.Error()))
		}
	}
	return rl.allowLocal(key)
}

func (rl *RateLimiter) incrRemote(ctx context.Context, key string) (int64, error) {
	result, err := rl.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := utils.WithShortTimeout(ctx)
		defer cancel()

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		// Set expiration on first request
		if count == 1 {
			if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
				return nil, err
			}
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		if len(rl.visitors) >= maxLocalVisitors {
			rl.evictIdle(now)
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if !v.limiter.AllowN(now, 1) {
		return false, 0
	}
	return true, int(v.limiter.TokensAt(now))
}

// evictIdle drops buckets that have been full for at least one window.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window {
			delete(rl.visitors, k)
		}
	}
}
