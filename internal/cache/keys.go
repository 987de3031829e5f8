package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"farmcast/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix        = "user:%d"
	ProfileKeyPrefix     = "profile:%d"
	WeatherKeyPrefix     = "weather:%s:%.2f:%.2f"
	GeocodeKeyPrefix     = "geocode:%s"
	FarmRefreshLockKey   = "lock:farm-weather:%d"
	TokenBlacklistPrefix = "blacklist:%s"
)

const (
	UserTTL    = 5 * time.Minute
	ProfileTTL = 2 * time.Minute
	GeocodeTTL = 24 * time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

// WeatherKey buckets coordinates to two decimals (about 1 km) so neighbouring farms share entries.
func WeatherKey(mode string, lat, lon float64) string {
	return fmt.Sprintf(WeatherKeyPrefix, mode, lat, lon)
}

func GeocodeKey(query string) string {
	return fmt.Sprintf(GeocodeKeyPrefix, query)
}

func FarmLockKey(farmID uint) string {
	return fmt.Sprintf(FarmRefreshLockKey, farmID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistPrefix, jti)
}

// Invalidate removes key. It is a no-op without Redis.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, ProfileKey(userID))
}

// GetJSON loads key into dst. found is false on a miss or when Redis is disabled.
func GetJSON(ctx context.Context, key string, dst interface{}) (found bool, err error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value under key with ttl. It is a no-op without Redis.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves dst from key when cached, otherwise runs fetch (which must fill dst) and caches the result.
// Cache failures are logged and never fail the read.
func Aside(ctx context.Context, key string, dst interface{}, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dst)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dst, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
