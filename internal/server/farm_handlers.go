package server

import (
	"farmcast/internal/models"
	"farmcast/internal/service"
	"farmcast/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreateFarmRequest is the farm payload; coordinates use the mobile client's field names.
type CreateFarmRequest struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat" validate:"required"`
	Long *float64 `json:"long" validate:"required"`
}

// DeleteFarmRequest names the farm to delete.
type DeleteFarmRequest struct {
	Name string `json:"name" validate:"required"`
}

// GetFarms lists the caller's farms
// @Summary List farms
// @Tags farms
// @Produce json
// @Success 200 {array} models.Farm
// @Failure 401 {object} models.ErrorResponse
// @Router /farms [get]
// @Security BearerAuth
func (s *Server) GetFarms(c *fiber.Ctx) error {
	farms, err := s.farmService.ListFarms(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(farms)
}

// CreateFarm adds a farm for the caller
// @Summary Create farm
// @Description Farm names are unique per user
// @Tags farms
// @Accept json
// @Produce json
// @Param request body CreateFarmRequest true "Farm"
// @Success 201 {object} models.Farm
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /farms [post]
// @Security BearerAuth
func (s *Server) CreateFarm(c *fiber.Ctx) error {
	var req CreateFarmRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return respondServiceError(c, err)
	}

	farm, err := s.farmService.CreateFarm(c.UserContext(), service.CreateFarmInput{
		UserID:    userIDFrom(c),
		Name:      req.Name,
		Latitude:  *req.Lat,
		Longitude: *req.Long,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(farm)
}

// DeleteFarm removes one of the caller's farms by name
// @Summary Delete farm
// @Tags farms
// @Accept json
// @Param request body DeleteFarmRequest true "Farm name"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /farms [delete]
// @Security BearerAuth
func (s *Server) DeleteFarm(c *fiber.Ctx) error {
	var req DeleteFarmRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return respondServiceError(c, err)
	}

	if err := s.farmService.DeleteFarm(c.UserContext(), userIDFrom(c), req.Name); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFarmWeather returns the stored weather snapshot of a farm
// @Summary Farm weather
// @Description Returns the last snapshot, fetching one when the farm has none yet
// @Tags farms
// @Produce json
// @Param id path int true "Farm ID"
// @Success 200 {object} service.FarmWeather
// @Failure 404 {object} models.ErrorResponse
// @Router /farms/{id}/weather [get]
// @Security BearerAuth
func (s *Server) GetFarmWeather(c *fiber.Ctx) error {
	farmID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	snapshot, err := s.weatherService.GetFarmWeather(c.UserContext(), userIDFrom(c), farmID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(snapshot)
}

// RefreshFarmWeather refreshes a farm snapshot now
// @Summary Refresh farm weather
// @Description Shares the per-farm lock with the daily alert job
// @Tags farms
// @Produce json
// @Param id path int true "Farm ID"
// @Success 200 {object} service.FarmWeather
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /farms/{id}/weather/refresh [post]
// @Security BearerAuth
func (s *Server) RefreshFarmWeather(c *fiber.Ctx) error {
	farmID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	snapshot, err := s.weatherService.RefreshOwnedFarm(c.UserContext(), userIDFrom(c), farmID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(snapshot)
}
