// Package storage persists uploaded photos on the local filesystem or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"farmcast/internal/config"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Key prefixes of the two photo collections.
const (
	ProfileDir = "Profile"
	FeedDir    = "Feed"
)

const (
	nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	nameLength   = 50
)

// ErrNotFound is returned when no object is stored under a key.
var ErrNotFound = errors.New("storage: object not found")

// Storage stores opaque blobs by key.
type Storage interface {
	// Write stores the content of r under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read opens the object stored under key. The caller closes it.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the storage backend selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			Prefix:          cfg.StorageBasePath,
		})
	case "", "local":
		return NewLocalStorage(LocalConfig{BasePath: cfg.StorageBasePath})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// NewKey returns a fresh random key under dir that keeps the extension of the
// uploaded file name.
func NewKey(dir, filename string) (string, error) {
	name, err := gonanoid.Generate(nameAlphabet, nameLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	return path.Join(dir, name+strings.ToLower(path.Ext(filename))), nil
}
