// Package bootstrap wires the process-wide runtime: database, cache and demo data.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"farmcast/internal/cache"
	"farmcast/internal/config"
	"farmcast/internal/database"
	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := EnsureDemoData(context.Background(), cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDemoData seeds a development database that has no users yet.
// Other environments are left untouched.
func EnsureDemoData(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.ShouldClean = false
	sum, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("seeded demo data",
		slog.Int("users", sum.Users),
		slog.Int("farms", sum.Farms),
		slog.Int("posts", sum.Posts),
	)
	return nil
}
