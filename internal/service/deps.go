// Package service holds the application's use cases. Handlers call services,
// services call repositories and gateways.
package service

import (
	"context"

	"farmcast/internal/geocoding"
	"farmcast/internal/notifications"
	"farmcast/internal/push"
	"farmcast/internal/weather"
)

// WeatherProvider is the weather gateway.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Current, error)
	Hourly(ctx context.Context, lat, lon float64) (*weather.Hourly, error)
	Daily(ctx context.Context, lat, lon float64) (*weather.Daily, error)
}

// PlaceSearcher is the geocoding gateway.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]geocoding.Place, error)
}

// Notifier delivers push notifications.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uint, category notifications.Category, msg push.Message) error
	NotifyDevice(ctx context.Context, token string, allowed bool, msg push.Message) error
	NotifyFollowersAsync(ctx context.Context, authorID uint, msg push.Message)
}
