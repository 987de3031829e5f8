package repository

import (
	"context"
	"errors"

	"farmcast/internal/models"

	"gorm.io/gorm"
)

// SettingsRepository reads and updates per-user notification settings.
type SettingsRepository interface {
	Get(ctx context.Context, userID uint) (*models.Settings, error)
	UpdateNotifications(ctx context.Context, userID uint, news bool, weather *bool) error
	UpdateFCMToken(ctx context.Context, userID uint, token string) error
	// UpdateTemperatureRange sets the bounds that are non-nil and leaves the
	// others as stored.
	UpdateTemperatureRange(ctx context.Context, userID uint, minTemp, maxTemp *float64) error
	// NewsRecipients returns the settings of followers of userID that have a
	// device registered and news notifications enabled.
	NewsRecipients(ctx context.Context, userID uint) ([]models.Settings, error)
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository returns a new SettingsRepository implementation.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, userID uint) (*models.Settings, error) {
	var s models.Settings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Settings not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &s, nil
}

func (r *settingsRepository) update(ctx context.Context, userID uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Settings{}).Where("user_id = ?", userID).Updates(values)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Settings not found")
	}
	return nil
}

func (r *settingsRepository) UpdateNotifications(ctx context.Context, userID uint, news bool, weather *bool) error {
	values := map[string]interface{}{"news_notifications": news}
	if weather != nil {
		values["weather_notifications"] = *weather
	}
	return r.update(ctx, userID, values)
}

func (r *settingsRepository) UpdateFCMToken(ctx context.Context, userID uint, token string) error {
	return r.update(ctx, userID, map[string]interface{}{"fcm_token": token})
}

func (r *settingsRepository) UpdateTemperatureRange(ctx context.Context, userID uint, minTemp, maxTemp *float64) error {
	values := map[string]interface{}{}
	if minTemp != nil {
		values["min_temp"] = *minTemp
	}
	if maxTemp != nil {
		values["max_temp"] = *maxTemp
	}
	if len(values) == 0 {
		return nil
	}
	return r.update(ctx, userID, values)
}

func (r *settingsRepository) NewsRecipients(ctx context.Context, userID uint) ([]models.Settings, error) {
	var out []models.Settings
	if err := r.db.WithContext(ctx).
		Joins("JOIN interactions ON interactions.follower = settings.user_id").
		Where("interactions.followed_profile = ?", userID).
		Where("settings.news_notifications = ? AND settings.fcm_token <> ''", true).
		Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
