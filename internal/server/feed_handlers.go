package server

import (
	"farmcast/internal/models"
	"farmcast/internal/service"
	"farmcast/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the new post payload.
type CreatePostRequest struct {
	PostName string   `json:"post_name"`
	Lat      *float64 `json:"lat" validate:"required"`
	Long     *float64 `json:"long" validate:"required"`
	Category string   `json:"category"`
	Text     string   `json:"text"`
}

// GetFeed lists posts near one of the caller's farms
// @Summary Geo feed
// @Description Posts within distance_range kilometres of the farm, newest first
// @Tags feed
// @Produce json
// @Param farm_id query int true "Farm ID"
// @Param distance_range query int true "Radius in km"
// @Success 200 {array} models.FeedPost
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed [get]
// @Security BearerAuth
func (s *Server) GetFeed(c *fiber.Ctx) error {
	farmID, err := s.parseQueryID(c, "farm_id")
	if err != nil {
		return nil
	}
	rangeKm := c.QueryInt("distance_range", 0)

	posts, err := s.feedService.Feed(c.UserContext(), userIDFrom(c), farmID, rangeKm)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetProfileFeed lists the posts of one profile
// @Summary Profile feed
// @Tags feed
// @Produce json
// @Param profile_id path int true "Profile ID"
// @Success 200 {array} models.FeedPost
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/{profile_id} [get]
// @Security BearerAuth
func (s *Server) GetProfileFeed(c *fiber.Ctx) error {
	profileID, err := s.parseID(c, "profile_id")
	if err != nil {
		return nil
	}
	posts, err := s.feedService.ProfileFeed(c.UserContext(), profileID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost publishes a post and notifies the author's followers
// @Summary Create post
// @Tags feed
// @Accept json
// @Produce json
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/new_post [post]
// @Security BearerAuth
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return respondServiceError(c, err)
	}

	in := service.CreatePostInput{
		UserID:    userIDFrom(c),
		PostName:  req.PostName,
		Latitude:  *req.Lat,
		Longitude: *req.Long,
		Category:  req.Category,
		Text:      req.Text,
	}

	post, err := s.feedService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// AddPostPhotos attaches uploaded pictures to a post
// @Summary Upload post photos
// @Tags feed
// @Accept multipart/form-data
// @Produce json
// @Param post_id query int true "Post ID"
// @Param files formData file true "Images"
// @Success 201 {array} models.PostPhoto
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/new_post_photos [post]
// @Security BearerAuth
func (s *Server) AddPostPhotos(c *fiber.Ctx) error {
	postID, err := s.parseQueryID(c, "post_id")
	if err != nil {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	files := form.File["files"]
	if len(files) > maxPhotosPerPost {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Too many files"))
	}

	limit := s.uploadLimit()
	uploads := make([]service.PhotoUpload, 0, len(files))
	for _, fh := range files {
		upload, err := readUpload(fh, limit)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid image file"))
		}
		uploads = append(uploads, upload)
	}

	photos, err := s.feedService.AddPhotos(c.UserContext(), userIDFrom(c), postID, uploads)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(photos)
}

// DeletePost deletes one of the caller's posts
// @Summary Delete post
// @Tags feed
// @Param post_id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/{post_id} [delete]
// @Security BearerAuth
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	if err := s.feedService.DeletePost(c.UserContext(), userIDFrom(c), postID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPostPhoto serves a post photo
// @Summary Get post photo
// @Tags feed
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param photo_id path int true "Photo ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/photos/{photo_id} [get]
// @Security BearerAuth
func (s *Server) GetPostPhoto(c *fiber.Ctx) error {
	photoID, err := s.parseID(c, "photo_id")
	if err != nil {
		return nil
	}
	body, contentType, err := s.feedService.OpenPhoto(c.UserContext(), photoID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return streamFile(c, body, contentType)
}
