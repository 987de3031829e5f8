// Package cache wraps the optional Redis client used for caching, locks, rate limits and token revocation.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"farmcast/internal/middleware"
	"farmcast/internal/observability"

	"github.com/redis/go-redis/v9"
)

// client is nil whenever Redis is not configured or not reachable; every helper
// in this package treats that as a cache miss.
var client *redis.Client

// errorCounter feeds failed commands into the redis error metric. redis.Nil is a miss, not an error.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countError(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countError("pipeline", err)
		return err
	}
}

func countError(command string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(command).Inc()
	}
}

// Options parses REDIS_URL, which may be a bare host:port or a redis:// / rediss:// URL.
func Options(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to addr. An empty, malformed or unreachable address leaves
// the package without a client and the API runs uncached.
func InitRedis(addr string) {
	client = nil
	if strings.TrimSpace(addr) == "" {
		middleware.Logger.Info("REDIS_URL empty, running without cache")
		return
	}

	opts, err := Options(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, running without cache", slog.String("error", err.Error()))
		return
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, running without cache",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = c.Close()
		return
	}

	SetClient(c)
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr))
}

// SetClient installs c as the package client. Tests pass a miniredis-backed client or nil.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

// GetClient returns the current client, nil when Redis is disabled.
func GetClient() *redis.Client {
	return client
}
