package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when the counter store cannot be reached.
type FailPolicy int

const (
	// FailOpen serves the request without counting it.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoStore = errors.New("rate limit store not configured")

// Quota is the outcome of one fixed-window check.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// limiterBypassed is true in development and test, where endpoints are hammered by hand and by the suite.
func limiterBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return true
	}
	return false
}

// TakeQuota counts one hit in a fixed window keyed by resource and caller.
// The counter and its expiry are written in a single pipeline.
func TakeQuota(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Quota, error) {
	if limiterBypassed() {
		return Quota{Allowed: true, Remaining: limit, ResetIn: window}, nil
	}
	if rdb == nil {
		return Quota{}, errNoStore
	}

	key := "farmcast:rl:" + resource + ":" + id
	pipe := rdb.TxPipeline()
	hits := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Quota{}, fmt.Errorf("rate limit %s: %w", resource, err)
	}

	n := int(hits.Val())
	remaining := limit - n
	if remaining < 0 {
		remaining = 0
	}
	reset := ttl.Val()
	if reset <= 0 {
		reset = window
	}
	return Quota{Allowed: n <= limit, Remaining: remaining, ResetIn: reset}, nil
}

// RateLimit limits a route to limit calls per window for each user (or client IP before login).
// A Redis outage lets traffic through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit outage policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Route().Path
		if len(name) > 0 {
			resource = name[0]
		}

		caller := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			caller = fmt.Sprintf("user:%v", uid)
		}

		q, err := TakeQuota(c.UserContext(), rdb, resource, caller, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable", "resource", resource, "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
				"code":  "RATE_LIMIT_UNAVAILABLE",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.ResetIn.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
