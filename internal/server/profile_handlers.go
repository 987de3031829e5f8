package server

import (
	"net/url"

	"farmcast/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile returns the caller's own profile
// @Summary Get current user's profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/me [get]
// @Security BearerAuth
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := userIDFrom(c)
	view, err := s.profileService.GetProfile(c.UserContext(), userID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetProfile returns another user's profile
// @Summary Get profile
// @Description Profile with counters, farms and whether the caller follows it (is_like)
// @Tags profile
// @Produce json
// @Param id path int true "Profile ID"
// @Success 200 {object} models.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{id} [get]
// @Security BearerAuth
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.profileService.GetProfile(c.UserContext(), userIDFrom(c), profileID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// SearchProfiles finds profiles by name
// @Summary Search profiles
// @Tags profile
// @Produce json
// @Param query path string true "Name fragment"
// @Success 200 {array} models.ProfileSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /profile/search/{query} [get]
// @Security BearerAuth
func (s *Server) SearchProfiles(c *fiber.Ctx) error {
	query, err := url.PathUnescape(c.Params("query"))
	if err != nil {
		query = c.Params("query")
	}
	results, err := s.profileService.SearchProfiles(c.UserContext(), query)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(results)
}

// FollowProfile makes the caller follow a profile
// @Summary Follow profile
// @Tags profile
// @Param id path int true "Profile ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{id}/follow [post]
// @Security BearerAuth
func (s *Server) FollowProfile(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.profileService.Follow(c.UserContext(), userIDFrom(c), profileID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnfollowProfile removes the caller's follow
// @Summary Unfollow profile
// @Tags profile
// @Param id path int true "Profile ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /profile/{id}/follow [delete]
// @Security BearerAuth
func (s *Server) UnfollowProfile(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.profileService.Unfollow(c.UserContext(), userIDFrom(c), profileID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateProfilePhoto replaces the caller's profile photo
// @Summary Upload profile photo
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /profile/photo [put]
// @Security BearerAuth
func (s *Server) UpdateProfilePhoto(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	upload, err := readUpload(fh, s.uploadLimit())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid image file"))
	}

	user, err := s.profileService.UpdatePhoto(c.UserContext(), userIDFrom(c), upload)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetProfilePhoto serves a profile photo
// @Summary Get profile photo
// @Tags profile
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param id path int true "Profile ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{id}/photo [get]
// @Security BearerAuth
func (s *Server) GetProfilePhoto(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	body, contentType, err := s.profileService.OpenPhoto(c.UserContext(), profileID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return streamFile(c, body, contentType)
}

// DeleteAccount deletes the caller and everything they own
// @Summary Delete account
// @Tags profile
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /profile [delete]
// @Security BearerAuth
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.profileService.DeleteAccount(c.UserContext(), userIDFrom(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
