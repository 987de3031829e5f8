package repository

import (
	"context"
	"testing"

	"farmcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_Updates(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "alice")

	off := false
	require.NoError(t, repo.UpdateNotifications(ctx, u.ID, false, &off))
	require.NoError(t, repo.UpdateFCMToken(ctx, u.ID, "device-1"))

	s, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, s.NewsNotifications)
	assert.False(t, s.WeatherNotifications)
	assert.Equal(t, "device-1", s.FCMToken)

	require.NoError(t, repo.UpdateNotifications(ctx, u.ID, true, nil))
	s, err = repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, s.NewsNotifications)
	assert.False(t, s.WeatherNotifications, "weather flag untouched when omitted")

	err = repo.UpdateFCMToken(ctx, 999, "x")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestSettingsRepository_TemperatureRange(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "alice")

	minTemp, maxTemp := -3.0, 28.0
	require.NoError(t, repo.UpdateTemperatureRange(ctx, u.ID, &minTemp, &maxTemp))
	s, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, s.MinTemp)
	require.NotNil(t, s.MaxTemp)
	assert.Equal(t, -3.0, *s.MinTemp)
	assert.Equal(t, 28.0, *s.MaxTemp)

	warmer := 31.5
	require.NoError(t, repo.UpdateTemperatureRange(ctx, u.ID, nil, &warmer))
	s, err = repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, -3.0, *s.MinTemp, "min untouched when omitted")
	assert.Equal(t, 31.5, *s.MaxTemp)

	require.NoError(t, repo.UpdateTemperatureRange(ctx, 999, nil, nil))
	err = repo.UpdateTemperatureRange(ctx, 999, &minTemp, nil)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestSettingsRepository_NewsRecipients(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db)
	interactions := NewInteractionRepository(db)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	author := createUser(t, users, "author")
	withToken := createUser(t, users, "token")
	noToken := createUser(t, users, "notoken")
	muted := createUser(t, users, "muted")
	stranger := createUser(t, users, "stranger")

	for _, u := range []*models.User{withToken, noToken, muted} {
		_, err := interactions.Follow(ctx, u.ID, author.ID)
		require.NoError(t, err)
	}
	require.NoError(t, repo.UpdateFCMToken(ctx, withToken.ID, "t1"))
	require.NoError(t, repo.UpdateFCMToken(ctx, muted.ID, "t2"))
	require.NoError(t, repo.UpdateFCMToken(ctx, stranger.ID, "t3"))
	require.NoError(t, repo.UpdateNotifications(ctx, muted.ID, false, nil))

	got, err := repo.NewsRecipients(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withToken.ID, got[0].UserID)
	assert.Equal(t, "t1", got[0].FCMToken)
}
