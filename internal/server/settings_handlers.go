package server

import (
	"farmcast/internal/models"
	"farmcast/internal/service"

	"github.com/gofiber/fiber/v2"
)

// NotificationSettingsRequest updates notification preferences. Weather
// alerts and temperature bounds keep their current value when omitted.
type NotificationSettingsRequest struct {
	NewsNotifications    bool     `json:"news_notifications"`
	WeatherNotifications *bool    `json:"weather_notifications"`
	MinTemp              *float64 `json:"min_temp"`
	MaxTemp              *float64 `json:"max_temp"`
}

// FCMTokenRequest registers the caller's device. An empty token clears it.
type FCMTokenRequest struct {
	FCMToken string `json:"fcm_token"`
}

// GetNotificationSettings returns the caller's notification preferences
// @Summary Get notification settings
// @Tags settings
// @Produce json
// @Success 200 {object} service.NotificationSettings
// @Failure 404 {object} models.ErrorResponse
// @Router /settings/notifications [get]
// @Security BearerAuth
func (s *Server) GetNotificationSettings(c *fiber.Ctx) error {
	settings, err := s.settingsService.GetNotifications(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(settings)
}

// UpdateNotificationSettings changes the caller's notification preferences
// @Summary Update notification settings
// @Tags settings
// @Accept json
// @Produce json
// @Param request body NotificationSettingsRequest true "Preferences"
// @Success 200 {object} service.NotificationSettings
// @Failure 400 {object} models.ErrorResponse
// @Router /settings/notifications [put]
// @Security BearerAuth
func (s *Server) UpdateNotificationSettings(c *fiber.Ctx) error {
	var req NotificationSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	settings, err := s.settingsService.UpdateNotifications(c.UserContext(), service.UpdateNotificationsInput{
		UserID:  userIDFrom(c),
		News:    req.NewsNotifications,
		Weather: req.WeatherNotifications,
		MinTemp: req.MinTemp,
		MaxTemp: req.MaxTemp,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(settings)
}

// UpdateFCMToken stores the caller's push token
// @Summary Register device token
// @Tags settings
// @Accept json
// @Param request body FCMTokenRequest true "FCM token"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /settings/fcm_token [put]
// @Security BearerAuth
func (s *Server) UpdateFCMToken(c *fiber.Ctx) error {
	var req FCMTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := s.settingsService.RegisterDevice(c.UserContext(), userIDFrom(c), req.FCMToken); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
