package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/service"

	"github.com/gofiber/fiber/v2"
)

// maxPhotosPerPost caps the number of files accepted by one upload request.
const maxPhotosPerPost = 10

var errResponseWritten = errors.New("response already written")

// parseID parses a uint route parameter and writes a validation error when it is malformed.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseQueryID is parseID for query string values.
func (s *Server) parseQueryID(c *fiber.Ctx, key string) (uint, error) {
	id, err := strconv.ParseUint(c.Query(key), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(key)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseCoordinates reads the :lat and :long route parameters.
func (s *Server) parseCoordinates(c *fiber.Ctx) (lat, lon float64, err error) {
	lat, latErr := strconv.ParseFloat(c.Params("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Params("long"), 64)
	if latErr != nil || lonErr != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Coordinates must be numbers"))
		return 0, 0, errResponseWritten
	}
	return lat, lon, nil
}

func humanizeParam(param string) string {
	switch param {
	case "id":
		return "ID"
	case "post_id":
		return "post ID"
	case "photo_id":
		return "photo ID"
	case "profile_id":
		return "profile ID"
	case "farm_id":
		return "farm ID"
	default:
		return strings.ReplaceAll(param, "_", " ")
	}
}

func userIDFrom(c *fiber.Ctx) uint {
	userID, _ := c.Locals("userID").(uint)
	return userID
}

// mapServiceError maps AppError codes to HTTP statuses.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeMethodNotAllowed:
		return fiber.StatusMethodNotAllowed
	default:
		return fiber.StatusInternalServerError
	}
}

func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// readUpload loads a multipart file into memory, reading at most limit+1 bytes
// so oversized files are still reported as too large.
func readUpload(fh *multipart.FileHeader, limit int64) (service.PhotoUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.PhotoUpload{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return service.PhotoUpload{}, err
	}
	return service.PhotoUpload{Filename: fh.Filename, Content: content}, nil
}

func (s *Server) uploadLimit() int64 {
	mb := service.DefaultPhotoMaxUploadMB
	if s.config != nil && s.config.PhotoMaxUploadMB > 0 {
		mb = s.config.PhotoMaxUploadMB
	}
	return int64(mb) * 1024 * 1024
}

// streamFile writes an opened stored object to the response.
func streamFile(c *fiber.Ctx, body io.ReadCloser, contentType string) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.SendStream(body)
}
