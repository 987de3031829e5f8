package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/push"
	"farmcast/internal/repository"
	"farmcast/internal/storage"
	"farmcast/internal/validation"
)

const maxPostNameLen = 100

type FeedService struct {
	postRepo repository.PostRepository
	farmRepo repository.FarmRepository
	userRepo repository.UserRepository
	photos   photoStore
	notifier Notifier
}

type CreatePostInput struct {
	UserID    uint
	PostName  string
	Latitude  float64
	Longitude float64
	Category  string
	Text      string
}

func NewFeedService(
	postRepo repository.PostRepository,
	farmRepo repository.FarmRepository,
	userRepo repository.UserRepository,
	store storage.Storage,
	maxUploadMB int,
	notifier Notifier,
) *FeedService {
	return &FeedService{
		postRepo: postRepo,
		farmRepo: farmRepo,
		userRepo: userRepo,
		photos:   newPhotoStore(store, maxUploadMB),
		notifier: notifier,
	}
}

// Feed returns the newest posts within rangeKm of one of the caller's farms.
func (s *FeedService) Feed(ctx context.Context, userID, farmID uint, rangeKm int) ([]models.FeedPost, error) {
	if rangeKm <= 0 {
		return nil, models.NewValidationError("distance_range must be greater than 0")
	}
	farm, err := s.farmRepo.GetByID(ctx, farmID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("Farm not found.")
		}
		return nil, err
	}
	if farm.UserID != userID {
		return nil, models.NewNotFoundMessage("Farm not found.")
	}

	posts, err := s.postRepo.Feed(ctx, farm.Latitude, farm.Longitude, float64(rangeKm))
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, models.NewNotFoundMessage("Feed is empty.")
	}

	lat, lon := farm.Latitude, farm.Longitude
	for i := range posts {
		posts[i].FarmLat = &lat
		posts[i].FarmLon = &lon
	}
	return posts, nil
}

// ProfileFeed lists the posts of one user, newest first.
func (s *FeedService) ProfileFeed(ctx context.Context, profileID uint) ([]models.FeedPost, error) {
	if _, err := s.userRepo.GetByID(ctx, profileID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("Profile was not found")
		}
		return nil, err
	}
	posts, err := s.postRepo.ProfileFeed(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.FeedPost{}
	}
	return posts, nil
}

// CreatePost publishes a post and notifies the author's followers in the background.
func (s *FeedService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validation.ValidateCoordinates(in.Longitude, in.Latitude); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.PostName)
	if name == "" || utf8.RuneCountInString(name) > maxPostNameLen {
		return nil, models.NewValidationError("Post name has invalid length.")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, models.NewValidationError("Category is required")
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		UserID:    in.UserID,
		PostName:  name,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Category:  category,
		Text:      in.Text,
		Date:      time.Now().UTC(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyFollowersAsync(ctx, in.UserID, push.Message{
			Title: author.FullName() + " added a new post",
			Body:  post.PostName,
			Data:  map[string]string{"post_id": uintString(post.ID)},
		})
	}
	return post, nil
}

// AddPhotos attaches pictures to a post owned by userID.
func (s *FeedService) AddPhotos(ctx context.Context, userID, postID uint, uploads []PhotoUpload) ([]models.PostPhoto, error) {
	if len(uploads) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("Profile or Post was not found")
		}
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewNotFoundMessage("Profile or Post was not found")
	}

	for _, up := range uploads {
		if _, err := s.photos.check(up); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key, err := s.photos.save(ctx, storage.FeedDir, up)
		if err != nil {
			s.photos.remove(context.WithoutCancel(ctx), keys...)
			return nil, err
		}
		keys = append(keys, key)
	}

	photos, err := s.postRepo.AddPhotos(ctx, postID, keys)
	if err != nil {
		s.photos.remove(context.WithoutCancel(ctx), keys...)
		return nil, err
	}
	return photos, nil
}

// DeletePost removes a post owned by userID with its stored photos.
func (s *FeedService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("Not authorized to delete this post")
	}

	keys, err := s.postRepo.Delete(ctx, postID)
	if err != nil {
		return err
	}
	s.photos.remove(context.WithoutCancel(ctx), keys...)
	return nil
}

// OpenPhoto streams a post photo. A row whose file is gone is dropped and
// reported as not found.
func (s *FeedService) OpenPhoto(ctx context.Context, photoID uint) (io.ReadCloser, string, error) {
	photo, err := s.postRepo.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, "", err
	}

	present, err := s.photos.store.Exists(ctx, photo.Photo)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	if !present {
		return nil, "", s.dropDanglingPhoto(ctx, photo)
	}

	rc, err := s.photos.store.Read(ctx, photo.Photo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", s.dropDanglingPhoto(ctx, photo)
		}
		return nil, "", models.NewInternalError(err)
	}
	return rc, contentTypeOf(photo.Photo), nil
}

func (s *FeedService) dropDanglingPhoto(ctx context.Context, photo *models.PostPhoto) error {
	if err := s.postRepo.DeletePhoto(ctx, photo.ID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to drop dangling photo row",
			slog.Uint64("photo_id", uint64(photo.ID)), slog.String("error", err.Error()))
	}
	return models.NewNotFoundMessage("Photo not found")
}
