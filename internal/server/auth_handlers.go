package server

import (
	"farmcast/internal/auth"
	"farmcast/internal/models"
	"farmcast/internal/service"
	"farmcast/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// LoginRequest accepts JSON credentials or an OAuth2 password form, where
// the email travels as "username".
type LoginRequest struct {
	Email    string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenRequest carries a refresh token.
type TokenRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" validate:"required"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new account with email, name and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with email and password and receive an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} auth.Pair
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	pair, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(pair)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh tokens
// @Description Exchange a valid refresh token for a new access/refresh pair. The old refresh token is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Refresh token"
// @Success 200 {object} auth.Pair
// @Failure 401 {object} models.ErrorResponse
// @Router /login/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return respondServiceError(c, err)
	}

	pair, err := s.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(pair)
}

// Logout revokes the caller's access token and, when given, its refresh token
// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest false "Refresh token to revoke"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /logout [post]
// @Security BearerAuth
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(*auth.Claims)
	if claims == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid authentication credentials"))
	}

	var req TokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	if err := s.authService.Logout(c.UserContext(), claims, req.RefreshToken); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
