package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"farmcast/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	key, err := NewKey(FeedDir, "IMG_001.JPG")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Feed/[0-9A-Za-z]{50}\.jpg$`), key)

	other, err := NewKey(FeedDir, "IMG_001.JPG")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	bare, err := NewKey(ProfileDir, "avatar")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Profile/[0-9A-Za-z]{50}$`), bare)
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{BasePath: base})
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "Feed/a.png", strings.NewReader("png-bytes"), 9, "image/png"))
	_, err = os.Stat(filepath.Join(base, "Feed", "a.png"))
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "Feed/a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Read(ctx, "Feed/a.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))

	require.NoError(t, s.Delete(ctx, "Feed/a.png"))
	require.NoError(t, s.Delete(ctx, "Feed/a.png"))

	ok, err = s.Exists(ctx, "Feed/a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, "Feed/a.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	for _, key := range []string{"../escape.png", "..", "/etc/passwd", "Feed/../../x"} {
		err := s.Write(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, key)
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	cfg := &config.Config{StorageDriver: "local", StorageBasePath: t.TempDir()}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	cfg.StorageDriver = "ftp"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
