package http

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter counts requests per client IP in fixed Redis windows. It fails
// open: when Redis is unavailable requests pass and a warning is logged.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRateLimiter builds a limiter. A nil client or a non-positive limit
// disables limiting.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window, logger: logger}
}

// Enabled reports whether requests are counted.
func (l *RateLimiter) Enabled() bool {
	return l != nil && l.client != nil && l.limit > 0
}

// Allow increments the counter for key and reports whether the request fits
// in the current window along with the remaining budget.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if !l.Enabled() {
		return true, l.limitOrZero(), nil
	}
	fullKey := rateLimitKeyPrefix + key

	val, err := l.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return true, l.limit, fmt.Errorf("rate limit counter: %w", err)
	}
	// first hit opens the window
	if val == 1 {
		if err := l.client.Expire(ctx, fullKey, l.window).Err(); err != nil {
			return true, l.limit, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	count := int(val)
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}

// Handle limits by route group and client IP.
func (l *RateLimiter) Handle(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Enabled() {
			return c.Next()
		}
		allowed, remaining, err := l.Allow(c.UserContext(), scope+":"+c.IP())
		if err != nil {
			l.logger.Warn("rate limiter unavailable; allowing request", zap.Error(err))
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(l.window.Seconds())))
			l.logger.Debug("rate limit exceeded", zap.String("scope", scope), zap.String("ip", c.IP()))
			return apperrors.NewTooManyRequests("Too many requests, please try again later")
		}
		return c.Next()
	}
}

func (l *RateLimiter) limitOrZero() int {
	if l == nil {
		return 0
	}
	return l.limit
}
