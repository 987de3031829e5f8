package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"net/http"
	"path"
	"strings"

	"farmcast/internal/middleware"
	"farmcast/internal/models"
	"farmcast/internal/storage"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultPhotoMaxUploadMB is used when no upload limit is configured.
const DefaultPhotoMaxUploadMB = 10

// PhotoUpload is one uploaded picture.
type PhotoUpload struct {
	Filename string
	Content  []byte
}

var extensionByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// photoStore validates pictures and writes them to storage.
type photoStore struct {
	store    storage.Storage
	maxBytes int64
}

func newPhotoStore(store storage.Storage, maxUploadMB int) photoStore {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultPhotoMaxUploadMB
	}
	return photoStore{store: store, maxBytes: int64(maxUploadMB) * 1024 * 1024}
}

// check returns the detected content type of a valid picture.
func (p photoStore) check(in PhotoUpload) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > p.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", p.maxBytes/(1024*1024)))
	}

	contentType := http.DetectContentType(in.Content)
	if _, ok := extensionByMIME[contentType]; !ok {
		return "", models.NewValidationError("Invalid image type")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(in.Content)); err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	return contentType, nil
}

// save validates and stores a picture under dir and returns its key.
func (p photoStore) save(ctx context.Context, dir string, in PhotoUpload) (string, error) {
	contentType, err := p.check(in)
	if err != nil {
		return "", err
	}

	filename := in.Filename
	if path.Ext(filename) == "" {
		filename += extensionByMIME[contentType]
	}
	key, err := storage.NewKey(dir, filename)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if err := p.store.Write(ctx, key, bytes.NewReader(in.Content), int64(len(in.Content)), contentType); err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

// remove deletes stored pictures. Failures are logged, the rows are already gone.
func (p photoStore) remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := p.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete stored photo",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

// contentTypeOf guesses the content type of a stored key from its extension.
func contentTypeOf(key string) string {
	ext := strings.ToLower(path.Ext(key))
	for mime, e := range extensionByMIME {
		if e == ext {
			return mime
		}
	}
	if ext == ".jpeg" {
		return "image/jpeg"
	}
	return "application/octet-stream"
}
