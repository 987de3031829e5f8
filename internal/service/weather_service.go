package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"farmcast/internal/cache"
	"farmcast/internal/geocoding"
	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/observability"
	"farmcast/internal/repository"
	"farmcast/internal/validation"
	"farmcast/internal/weather"

	"golang.org/x/sync/singleflight"
)

const (
	refreshLeaseTTL  = 2 * time.Minute
	refreshLeaseWait = 30 * time.Second
	refreshLeasePoll = 250 * time.Millisecond
)

// FarmWeather is the stored forecast of one farm.
type FarmWeather struct {
	FarmID      uint             `json:"farm_id"`
	Current     *weather.Current `json:"current"`
	Daily       *weather.Daily   `json:"daily"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// WeatherService serves provider lookups through the cache and keeps farm
// snapshots up to date.
type WeatherService struct {
	provider WeatherProvider
	places   PlaceSearcher
	farms    repository.FarmRepository
	cacheTTL time.Duration

	group singleflight.Group
	locks *keyedMutex
	now   func() time.Time
}

func NewWeatherService(provider WeatherProvider, places PlaceSearcher, farms repository.FarmRepository, cacheTTL time.Duration) *WeatherService {
	return &WeatherService{
		provider: provider,
		places:   places,
		farms:    farms,
		cacheTTL: cacheTTL,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// cachedFetch serves key from Redis and otherwise coalesces identical
// concurrent provider calls into one.
func cachedFetch[T any](ctx context.Context, s *WeatherService, key string, fetch func(context.Context) (*T, error)) (*T, error) {
	var out T
	found, err := cache.GetJSON(ctx, key, &out)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "weather cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.WeatherCacheLookups.WithLabelValues("hit").Inc()
		return &out, nil
	}
	observability.WeatherCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Shared by coalesced callers; the first one leaving must not cancel it.
		fetchCtx := context.WithoutCancel(ctx)
		res, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if s.cacheTTL > 0 {
			if err := cache.SetJSON(fetchCtx, key, res, s.cacheTTL); err != nil {
				middleware.Logger.WarnContext(fetchCtx, "weather cache write failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func (s *WeatherService) Current(ctx context.Context, lat, lon float64) (*weather.Current, error) {
	if err := validation.ValidateCoordinates(lon, lat); err != nil {
		return nil, err
	}
	return cachedFetch(ctx, s, cache.WeatherKey("current", lat, lon), func(ctx context.Context) (*weather.Current, error) {
		return s.provider.Current(ctx, lat, lon)
	})
}

func (s *WeatherService) Hourly(ctx context.Context, lat, lon float64) (*weather.Hourly, error) {
	if err := validation.ValidateCoordinates(lon, lat); err != nil {
		return nil, err
	}
	return cachedFetch(ctx, s, cache.WeatherKey("hourly", lat, lon), func(ctx context.Context) (*weather.Hourly, error) {
		return s.provider.Hourly(ctx, lat, lon)
	})
}

func (s *WeatherService) Daily(ctx context.Context, lat, lon float64) (*weather.Daily, error) {
	if err := validation.ValidateCoordinates(lon, lat); err != nil {
		return nil, err
	}
	return cachedFetch(ctx, s, cache.WeatherKey("daily", lat, lon), func(ctx context.Context) (*weather.Daily, error) {
		return s.provider.Daily(ctx, lat, lon)
	})
}

// SearchPlaces geocodes query. Results are cached per normalized query.
func (s *WeatherService) SearchPlaces(ctx context.Context, query string) ([]geocoding.Place, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, models.NewValidationError("Search string not correct")
	}

	var places []geocoding.Place
	err := cache.Aside(ctx, cache.GeocodeKey(normalized), &places, cache.GeocodeTTL, func() error {
		var err error
		places, err = s.places.Search(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return places, nil
}

// GetFarmWeather returns the caller's farm snapshot, refreshing it when none
// was stored yet.
func (s *WeatherService) GetFarmWeather(ctx context.Context, userID, farmID uint) (*FarmWeather, error) {
	farm, err := s.ownedFarm(ctx, userID, farmID)
	if err != nil {
		return nil, err
	}

	snap, err := s.farms.GetWeather(ctx, farm.ID)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return decodeSnapshot(snap)
	}
	return s.RefreshFarm(ctx, farm)
}

// RefreshOwnedFarm is the manual refresh of a farm by its owner.
func (s *WeatherService) RefreshOwnedFarm(ctx context.Context, userID, farmID uint) (*FarmWeather, error) {
	farm, err := s.ownedFarm(ctx, userID, farmID)
	if err != nil {
		return nil, err
	}
	return s.RefreshFarm(ctx, farm)
}

func (s *WeatherService) ownedFarm(ctx context.Context, userID, farmID uint) (*models.Farm, error) {
	farm, err := s.farms.GetByID(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if farm.UserID != userID {
		return nil, models.NewNotFoundMessage("Farm not found.")
	}
	return farm, nil
}

// RefreshFarm fetches and stores a new snapshot for farm. It is the single
// entry point for both the daily job and manual refreshes: calls for the same
// farm run one at a time, in-process through a keyed mutex and across
// instances through a Redis lease. A caller that waited for a refresh which
// finished after it asked reuses that result instead of fetching again.
func (s *WeatherService) RefreshFarm(ctx context.Context, farm *models.Farm) (*FarmWeather, error) {
	requested := s.now()
	ctx = middleware.WithFarm(ctx, farm.ID)

	unlock := s.locks.Lock(farm.ID)
	defer unlock()

	lease, err := s.acquireLease(ctx, farm.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to release farm weather lease", slog.String("error", err.Error()))
		}
	}()

	existing, err := s.farms.GetWeather(ctx, farm.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.RefreshedAt.Before(requested) {
		return decodeSnapshot(existing)
	}

	current, err := s.provider.Current(ctx, farm.Latitude, farm.Longitude)
	if err != nil {
		return nil, err
	}
	daily, err := s.provider.Daily(ctx, farm.Latitude, farm.Longitude)
	if err != nil {
		return nil, err
	}

	out := &FarmWeather{FarmID: farm.ID, Current: current, Daily: daily, RefreshedAt: s.now().UTC()}
	snap, err := encodeSnapshot(out)
	if err != nil {
		return nil, err
	}
	if err := s.farms.SaveWeather(ctx, snap); err != nil {
		return nil, err
	}
	return out, nil
}

// acquireLease waits for the cross-instance refresh lease. Redis failures fall
// back to the in-process lock alone.
func (s *WeatherService) acquireLease(ctx context.Context, farmID uint) (*cache.Lease, error) {
	deadline := time.NewTimer(refreshLeaseWait)
	defer deadline.Stop()

	for {
		lease, err := cache.Acquire(ctx, cache.FarmLockKey(farmID), refreshLeaseTTL)
		if err == nil {
			return lease, nil
		}
		if !errors.Is(err, cache.ErrLockHeld) {
			middleware.Logger.WarnContext(ctx, "farm weather lease unavailable", slog.String("error", err.Error()))
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, models.NewConflictError("Weather refresh already in progress")
		case <-time.After(refreshLeasePoll):
		}
	}
}

func encodeSnapshot(w *FarmWeather) (*models.FarmWeather, error) {
	current, err := json.Marshal(w.Current)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("encode current weather: %w", err))
	}
	daily, err := json.Marshal(w.Daily)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("encode daily weather: %w", err))
	}
	return &models.FarmWeather{
		FarmID:      w.FarmID,
		Current:     string(current),
		Daily:       string(daily),
		RefreshedAt: w.RefreshedAt,
	}, nil
}

func decodeSnapshot(snap *models.FarmWeather) (*FarmWeather, error) {
	out := &FarmWeather{FarmID: snap.FarmID, RefreshedAt: snap.RefreshedAt}
	if err := json.Unmarshal([]byte(snap.Current), &out.Current); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode current weather: %w", err))
	}
	if err := json.Unmarshal([]byte(snap.Daily), &out.Daily); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode daily weather: %w", err))
	}
	return out, nil
}
