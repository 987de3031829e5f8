package service

import (
	"context"
	"errors"
	"strings"

	"farmcast/internal/auth"
	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/repository"
	"farmcast/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid authentication credentials"

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
}

type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Register creates an account. Checks run in a fixed order so that clients
// always see the first failing rule.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	form := validation.Registration{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.Password,
	}
	if err := validation.ValidatePassword(form.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmailForm(form.Email); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewForbiddenError("Email already taken.")
	}

	if err := validation.ValidateRegistrationLengths(form); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:     strings.ToLower(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login exchanges credentials for a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.Pair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Incorrect email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Incorrect email or password")
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pair, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid refresh token")
	}
	if s.tokens.IsRevoked(ctx, claims.JTI) {
		return nil, models.NewUnauthorizedError("Refresh token has been revoked")
	}
	if _, err := s.userRepo.GetByID(ctx, claims.UserID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid refresh token")
		}
		return nil, err
	}

	if err := s.tokens.Revoke(ctx, claims); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke rotated refresh token")
	}
	pair, err := s.tokens.Issue(claims.UserID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pair, nil
}

// Logout revokes the presented access token and, when given, the refresh token.
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, access); err != nil {
		return models.NewInternalError(err)
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if claims.UserID != access.UserID {
		return models.NewForbiddenError("Refresh token belongs to another user")
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Authenticate resolves a bearer access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError(invalidCredentials)
	}
	if s.tokens.IsRevoked(ctx, claims.JTI) {
		return nil, nil, models.NewUnauthorizedError(invalidCredentials)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, nil, models.NewNotFoundMessage("Profile not found")
		}
		return nil, nil, err
	}
	return user, claims, nil
}
