package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/notifications"
	"farmcast/internal/push"
	"farmcast/internal/repository"
	"farmcast/internal/storage"
)

// SearchLimit caps profile search results.
const SearchLimit = 20

type ProfileService struct {
	userRepo        repository.UserRepository
	farmRepo        repository.FarmRepository
	interactionRepo repository.InteractionRepository
	photos          photoStore
	notifier        Notifier
}

func NewProfileService(
	userRepo repository.UserRepository,
	farmRepo repository.FarmRepository,
	interactionRepo repository.InteractionRepository,
	store storage.Storage,
	maxUploadMB int,
	notifier Notifier,
) *ProfileService {
	return &ProfileService{
		userRepo:        userRepo,
		farmRepo:        farmRepo,
		interactionRepo: interactionRepo,
		photos:          newPhotoStore(store, maxUploadMB),
		notifier:        notifier,
	}
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// GetProfile builds the profile page of profileID as seen by viewerID.
func (s *ProfileService) GetProfile(ctx context.Context, viewerID, profileID uint) (*models.ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, profileID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("Profile not found")
		}
		return nil, err
	}

	attrs, err := s.userRepo.GetAttributes(ctx, profileID)
	if err != nil {
		return nil, err
	}
	farms, err := s.farmRepo.ListByUser(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if farms == nil {
		farms = []models.Farm{}
	}

	following := false
	if viewerID != profileID {
		if following, err = s.interactionRepo.Exists(ctx, viewerID, profileID); err != nil {
			return nil, err
		}
	}

	return &models.ProfileView{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Photo:       user.Photo,
		PostCount:   attrs.PostCount,
		LikeCount:   attrs.LikeCount,
		Farms:       farms,
		IsFollowing: following,
	}, nil
}

func (s *ProfileService) SearchProfiles(ctx context.Context, query string) ([]models.ProfileSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	out, err := s.userRepo.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.ProfileSummary{}
	}
	return out, nil
}

// Follow makes followerID follow followedID. Following twice is a no-op.
// The followed user is told about new followers when news pushes are on.
func (s *ProfileService) Follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followedID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.NewNotFoundMessage("Profile not found")
		}
		return err
	}

	follower, err := s.userRepo.GetByID(ctx, followerID)
	if err != nil {
		return err
	}

	created, err := s.interactionRepo.Follow(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if created && s.notifier != nil {
		err := s.notifier.NotifyUser(ctx, followedID, notifications.CategoryNews, push.Message{
			Title: "New follower",
			Body:  follower.FullName() + " started following you",
			Data:  map[string]string{"profile_id": uintString(followerID)},
		})
		if err != nil && !models.HasCode(err, models.CodeMethodNotAllowed) {
			middleware.Logger.WarnContext(ctx, "follow notification failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *ProfileService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	_, err := s.interactionRepo.Unfollow(ctx, followerID, followedID)
	return err
}

// UpdatePhoto replaces the profile picture of userID.
func (s *ProfileService) UpdatePhoto(ctx context.Context, userID uint, upload PhotoUpload) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Photo

	key, err := s.photos.save(ctx, storage.ProfileDir, upload)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePhoto(ctx, userID, key); err != nil {
		s.photos.remove(context.WithoutCancel(ctx), key)
		return nil, err
	}
	s.photos.remove(context.WithoutCancel(ctx), previous)

	user.Photo = key
	return user, nil
}

// OpenPhoto streams the profile picture of profileID.
func (s *ProfileService) OpenPhoto(ctx context.Context, profileID uint) (io.ReadCloser, string, error) {
	user, err := s.userRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, "", err
	}
	if user.Photo == "" {
		return nil, "", models.NewNotFoundMessage("Photo not found")
	}

	rc, err := s.photos.store.Read(ctx, user.Photo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", models.NewNotFoundMessage("Photo not found")
		}
		return nil, "", models.NewInternalError(err)
	}
	return rc, contentTypeOf(user.Photo), nil
}

// DeleteAccount removes userID with all owned data and stored photos.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uint) error {
	keys, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	s.photos.remove(context.WithoutCancel(ctx), keys...)
	return nil
}
