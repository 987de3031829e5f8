package service

import (
	"context"
	"strings"

	"farmcast/internal/models"
	"farmcast/internal/repository"
)

type SettingsService struct {
	settingsRepo repository.SettingsRepository
}

// NotificationSettings are the user-facing push toggles.
type NotificationSettings struct {
	NewsNotifications    bool     `json:"news_notifications"`
	WeatherNotifications bool     `json:"weather_notifications"`
	MinTemp              *float64 `json:"min_temp,omitempty"`
	MaxTemp              *float64 `json:"max_temp,omitempty"`
}

type UpdateNotificationsInput struct {
	UserID  uint
	News    bool
	Weather *bool
	MinTemp *float64
	MaxTemp *float64
}

func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

func (s *SettingsService) GetNotifications(ctx context.Context, userID uint) (*NotificationSettings, error) {
	settings, err := s.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationSettings{
		NewsNotifications:    settings.NewsNotifications,
		WeatherNotifications: settings.WeatherNotifications,
		MinTemp:              settings.MinTemp,
		MaxTemp:              settings.MaxTemp,
	}, nil
}

// UpdateNotifications sets the news toggle and, when given, the weather
// toggle and temperature bounds. A bound that is omitted keeps its value.
func (s *SettingsService) UpdateNotifications(ctx context.Context, in UpdateNotificationsInput) (*NotificationSettings, error) {
	if in.MinTemp != nil || in.MaxTemp != nil {
		if err := s.checkTemperatureRange(ctx, in); err != nil {
			return nil, err
		}
	}
	if err := s.settingsRepo.UpdateNotifications(ctx, in.UserID, in.News, in.Weather); err != nil {
		return nil, err
	}
	if in.MinTemp != nil || in.MaxTemp != nil {
		if err := s.settingsRepo.UpdateTemperatureRange(ctx, in.UserID, in.MinTemp, in.MaxTemp); err != nil {
			return nil, err
		}
	}
	return s.GetNotifications(ctx, in.UserID)
}

// checkTemperatureRange rejects a range whose minimum exceeds its maximum,
// filling an omitted bound from the stored settings.
func (s *SettingsService) checkTemperatureRange(ctx context.Context, in UpdateNotificationsInput) error {
	minTemp, maxTemp := in.MinTemp, in.MaxTemp
	if minTemp == nil || maxTemp == nil {
		current, err := s.settingsRepo.Get(ctx, in.UserID)
		if err != nil {
			return err
		}
		if minTemp == nil {
			minTemp = current.MinTemp
		}
		if maxTemp == nil {
			maxTemp = current.MaxTemp
		}
	}
	if minTemp != nil && maxTemp != nil && *minTemp > *maxTemp {
		return models.NewValidationError("min_temp must not exceed max_temp")
	}
	return nil
}

// RegisterDevice stores the device token. An empty token unregisters the device.
func (s *SettingsService) RegisterDevice(ctx context.Context, userID uint, token string) error {
	return s.settingsRepo.UpdateFCMToken(ctx, userID, strings.TrimSpace(token))
}
