package server

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentWeather returns the current conditions at a coordinate
// @Summary Current weather
// @Description Current conditions flattened into one object. Coordinates outside the valid range return 404.
// @Tags weather
// @Produce json
// @Param lat path number true "Latitude"
// @Param long path number true "Longitude"
// @Success 200 {object} weather.Current
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /weather/curr/{lat}/{long} [get]
func (s *Server) GetCurrentWeather(c *fiber.Ctx) error {
	lat, lon, err := s.parseCoordinates(c)
	if err != nil {
		return nil
	}
	current, err := s.weatherService.Current(c.UserContext(), lat, lon)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(current)
}

// GetHourlyWeather returns the hourly forecast at a coordinate
// @Summary Hourly forecast
// @Tags weather
// @Produce json
// @Param lat path number true "Latitude"
// @Param long path number true "Longitude"
// @Success 200 {object} weather.Hourly
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /weather/hourly/{lat}/{long} [get]
func (s *Server) GetHourlyWeather(c *fiber.Ctx) error {
	lat, lon, err := s.parseCoordinates(c)
	if err != nil {
		return nil
	}
	hourly, err := s.weatherService.Hourly(c.UserContext(), lat, lon)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(hourly)
}

// GetDailyWeather returns the daily forecast at a coordinate
// @Summary Daily forecast
// @Tags weather
// @Produce json
// @Param lat path number true "Latitude"
// @Param long path number true "Longitude"
// @Success 200 {object} weather.Daily
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /weather/daily/{lat}/{long} [get]
func (s *Server) GetDailyWeather(c *fiber.Ctx) error {
	lat, lon, err := s.parseCoordinates(c)
	if err != nil {
		return nil
	}
	daily, err := s.weatherService.Daily(c.UserContext(), lat, lon)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(daily)
}

// SearchLocation resolves a free-text place name
// @Summary Search places
// @Description Forward geocoding, deduplicated by display name
// @Tags weather
// @Produce json
// @Param query path string true "Place name"
// @Success 200 {array} geocoding.Place
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /weather/search/{query} [get]
func (s *Server) SearchLocation(c *fiber.Ctx) error {
	query, err := url.PathUnescape(c.Params("query"))
	if err != nil {
		query = c.Params("query")
	}
	places, err := s.weatherService.SearchPlaces(c.UserContext(), query)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(places)
}
